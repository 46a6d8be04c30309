package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/manobala/peer-chat/internal/domain"
	"github.com/manobala/peer-chat/pkg/log"
)

var (
	errSessionNotFound = fmt.Errorf("%w: chat not found", domain.ErrNotFound)
	errNotParticipant  = fmt.Errorf("%w: you are not a participant of this chat", domain.ErrForbidden)
)

// GormExpertChatRepository implements ExpertChatRepository using GORM.
type GormExpertChatRepository struct {
	db            *gorm.DB
	previewLength int
}

// NewGormExpertChatRepository creates a new GORM-based expert chat repository.
// previewLength bounds the stored last message preview, in runes.
func NewGormExpertChatRepository(db *gorm.DB, previewLength int) *GormExpertChatRepository {
	if previewLength <= 0 || previewLength > 200 {
		previewLength = 120
	}
	return &GormExpertChatRepository{db: db, previewLength: previewLength}
}

// GetOrCreateSession returns the session of the unordered (user, expert)
// pair, inserting it if needed. The unique pair index makes concurrent calls
// converge on one row. The bool reports whether this call created it.
func (r *GormExpertChatRepository) GetOrCreateSession(ctx context.Context, userID, expertID string) (*domain.ExpertChatSession, bool, error) {
	l := log.Ctx(ctx)

	if userID == "" || expertID == "" {
		return nil, false, fmt.Errorf("%w: both participants are required", domain.ErrValidation)
	}
	if userID == expertID {
		return nil, false, fmt.Errorf("%w: cannot start a chat with yourself", domain.ErrValidation)
	}

	low, high := domain.SessionPair(userID, expertID)
	candidate := domain.ExpertSessionModel{
		ID:           domain.NewID(),
		UserID:       userID,
		ExpertID:     expertID,
		PairLow:      low,
		PairHigh:     high,
		LastActivity: time.Now().UTC(),
	}

	db := r.db.WithContext(ctx)
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pair_low"}, {Name: "pair_high"}},
		DoNothing: true,
	}).Create(&candidate)
	if result.Error != nil {
		return nil, false, storeError(ctx, result.Error, "failed to create expert chat session")
	}
	created := result.RowsAffected == 1

	var model domain.ExpertSessionModel
	if err := db.First(&model, "pair_low = ? AND pair_high = ?", low, high).Error; err != nil {
		return nil, false, storeError(ctx, err, "failed to load expert chat session")
	}

	if created {
		l.Info().Str(log.FieldSessionID, model.ID).Msg("expert chat session created")
	}
	session := model.ToDomain()
	return &session, created, nil
}

// GetSession loads a session on behalf of callerID.
func (r *GormExpertChatRepository) GetSession(ctx context.Context, sessionID, callerID string) (*domain.ExpertChatSession, error) {
	model, err := r.participantSession(r.db.WithContext(ctx), sessionID, callerID)
	if err != nil {
		return nil, storeError(ctx, err, "failed to get expert chat session")
	}
	session := model.ToDomain()
	return &session, nil
}

// AppendSessionMessage stores a message and moves the session preview to it
// in the same transaction. The preview only moves forward, so it always
// reflects the newest message even under concurrent appends.
func (r *GormExpertChatRepository) AppendSessionMessage(ctx context.Context, sessionID, senderID, body string) (*domain.ExpertChatMessage, error) {
	l := log.Ctx(ctx)

	content, err := domain.NormalizeContent(body, domain.MaxSessionMessageLength)
	if err != nil {
		return nil, err
	}

	model := domain.ExpertMessageModel{
		ID:        domain.NewID(),
		SessionID: sessionID,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := r.participantSession(tx, sessionID, senderID); err != nil {
			return err
		}
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		return tx.Model(&domain.ExpertSessionModel{}).
			Where("id = ? AND last_message_id < ?", sessionID, model.ID).
			UpdateColumns(map[string]interface{}{
				"last_activity":        model.CreatedAt,
				"last_message_id":      model.ID,
				"last_message_preview": domain.Preview(content, r.previewLength),
				"last_sender_id":       senderID,
			}).Error
	})
	if err != nil {
		return nil, storeError(ctx, err, "failed to append expert chat message")
	}

	l.Debug().Str(log.FieldSessionID, sessionID).Str(log.FieldMessageID, model.ID).Msg("expert chat message stored")
	msg := model.ToDomain()
	return &msg, nil
}

// ListSessionsFor lists the sessions of userID in the given role, most
// recently active first.
func (r *GormExpertChatRepository) ListSessionsFor(ctx context.Context, userID string, asExpert bool) ([]domain.ExpertChatSession, error) {
	column := "user_id"
	if asExpert {
		column = "expert_id"
	}

	var models []domain.ExpertSessionModel
	err := r.db.WithContext(ctx).
		Where(column+" = ?", userID).
		Order("last_activity DESC, id DESC").
		Find(&models).Error
	if err != nil {
		return nil, storeError(ctx, err, "failed to list expert chat sessions")
	}

	sessions := make([]domain.ExpertChatSession, len(models))
	for i := range models {
		sessions[i] = models[i].ToDomain()
	}
	return sessions, nil
}

// ListSessionMessages returns the messages of a session, oldest first.
func (r *GormExpertChatRepository) ListSessionMessages(ctx context.Context, sessionID, callerID string) ([]domain.ExpertChatMessage, error) {
	db := r.db.WithContext(ctx)
	if _, err := r.participantSession(db, sessionID, callerID); err != nil {
		return nil, storeError(ctx, err, "failed to get expert chat session")
	}

	var models []domain.ExpertMessageModel
	if err := db.Where("session_id = ?", sessionID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, storeError(ctx, err, "failed to list expert chat messages")
	}

	messages := make([]domain.ExpertChatMessage, len(models))
	for i := range models {
		messages[i] = models[i].ToDomain()
	}
	return messages, nil
}

func (r *GormExpertChatRepository) participantSession(tx *gorm.DB, sessionID, callerID string) (*domain.ExpertSessionModel, error) {
	if err := requireID(sessionID, "chat"); err != nil {
		return nil, err
	}

	var model domain.ExpertSessionModel
	if err := tx.First(&model, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errSessionNotFound
		}
		return nil, err
	}
	if !model.ToDomain().HasParticipant(callerID) {
		return nil, errNotParticipant
	}
	return &model, nil
}
