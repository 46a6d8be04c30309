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
	errRoomNotFound    = fmt.Errorf("%w: room not found", domain.ErrNotFound)
	errMessageNotFound = fmt.Errorf("%w: message not found", domain.ErrNotFound)
)

// GormForumRepository implements ForumRepository using GORM.
type GormForumRepository struct {
	db *gorm.DB
}

// NewGormForumRepository creates a new GORM-based forum repository.
func NewGormForumRepository(db *gorm.DB) *GormForumRepository {
	return &GormForumRepository{db: db}
}

// ListRooms returns active rooms ordered by category, then creation.
func (r *GormForumRepository) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var models []domain.RoomModel
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("category ASC, created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, storeError(ctx, err, "failed to list rooms from db")
	}

	rooms := make([]domain.Room, len(models))
	for i := range models {
		rooms[i] = models[i].ToDomain()
	}
	return rooms, nil
}

// GetRoom retrieves an active room by ID.
func (r *GormForumRepository) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	if err := requireID(roomID, "room"); err != nil {
		return nil, err
	}

	var model domain.RoomModel
	err := r.db.WithContext(ctx).First(&model, "id = ? AND is_active = ?", roomID, true).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errRoomNotFound
		}
		return nil, storeError(ctx, err, "failed to get room by id")
	}
	room := model.ToDomain()
	return &room, nil
}

// EnsureRoom creates room unless a room of the same type exists. It reports
// whether a row was inserted and fills room with the stored values.
func (r *GormForumRepository) EnsureRoom(ctx context.Context, room *domain.Room) (bool, error) {
	if !room.Type.Valid() || !room.Category.Valid() {
		return false, fmt.Errorf("%w: invalid room type or category", domain.ErrValidation)
	}
	if room.Icon == "" {
		room.Icon = domain.DefaultRoomIcon
	}
	if room.Color == "" {
		room.Color = domain.DefaultRoomColor
	}

	model := domain.RoomModel{}
	result := r.db.WithContext(ctx).
		Where(domain.RoomModel{Type: string(room.Type)}).
		Attrs(domain.RoomModel{
			ID:          domain.NewID(),
			Name:        room.Name,
			Description: room.Description,
			Category:    string(room.Category),
			Icon:        room.Icon,
			Color:       room.Color,
			IsActive:    true,
		}).
		FirstOrCreate(&model)
	if result.Error != nil {
		return false, storeError(ctx, result.Error, "failed to ensure room")
	}

	*room = model.ToDomain()
	return result.RowsAffected == 1, nil
}

// IncrementMemberCount bumps the cosmetic join counter and returns it.
func (r *GormForumRepository) IncrementMemberCount(ctx context.Context, roomID string) (int, error) {
	if err := requireID(roomID, "room"); err != nil {
		return 0, err
	}

	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.RoomModel{}).
			Where("id = ? AND is_active = ?", roomID, true).
			UpdateColumn("member_count", gorm.Expr("member_count + ?", 1))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errRoomNotFound
		}
		return tx.Model(&domain.RoomModel{}).
			Where("id = ?", roomID).
			Pluck("member_count", &count).Error
	})
	if err != nil {
		return 0, storeError(ctx, err, "failed to increment member count")
	}
	return count, nil
}

// ListRoomMessages returns one page of history, oldest first. Page 1 holds
// the newest pageSize messages.
func (r *GormForumRepository) ListRoomMessages(ctx context.Context, roomID string, page, pageSize int) (*domain.MessagePage, error) {
	room, err := r.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	var total int64
	err = r.db.WithContext(ctx).Model(&domain.RoomMessageModel{}).
		Where("room_id = ?", roomID).
		Count(&total).Error
	if err != nil {
		return nil, storeError(ctx, err, "failed to count room messages")
	}

	var models []domain.RoomMessageModel
	err = withThread(r.db.WithContext(ctx)).
		Where("room_id = ?", roomID).
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, storeError(ctx, err, "failed to list room messages from db")
	}

	messages := make([]domain.RoomMessage, len(models))
	for i := range models {
		messages[len(models)-1-i] = models[i].ToDomain()
	}

	return &domain.MessagePage{
		Room:       room,
		Messages:   messages,
		Pagination: domain.NewPagination(page, pageSize, len(models), total),
	}, nil
}

// GetRoomMessage loads a message with its reactions and replies.
func (r *GormForumRepository) GetRoomMessage(ctx context.Context, messageID string) (*domain.RoomMessage, error) {
	if err := requireID(messageID, "message"); err != nil {
		return nil, err
	}
	model, err := r.loadMessage(r.db.WithContext(ctx), messageID)
	if err != nil {
		return nil, storeError(ctx, err, "failed to get room message")
	}
	msg := model.ToDomain()
	return &msg, nil
}

// AppendRoomMessage inserts a message and bumps the room counters in one
// transaction. The id is assigned before the transaction, so the insert is
// the only link between room and message.
func (r *GormForumRepository) AppendRoomMessage(ctx context.Context, roomID, authorID, body string, anonymous bool) (*domain.RoomMessage, error) {
	l := log.Ctx(ctx)

	if err := requireID(roomID, "room"); err != nil {
		return nil, err
	}
	content, err := domain.NormalizeContent(body, domain.MaxRoomMessageLength)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	model := domain.RoomMessageModel{
		ID:          domain.NewID(),
		RoomID:      roomID,
		AuthorID:    authorID,
		Content:     content,
		IsAnonymous: anonymous,
		CreatedAt:   now,
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.RoomModel{}).
			Where("id = ? AND is_active = ?", roomID, true).
			UpdateColumns(map[string]interface{}{
				"message_count":   gorm.Expr("message_count + ?", 1),
				"last_message_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errRoomNotFound
		}
		return tx.Omit(clause.Associations).Create(&model).Error
	})
	if err != nil {
		return nil, storeError(ctx, err, "failed to append room message")
	}

	l.Debug().Str(log.FieldRoomID, roomID).Str(log.FieldMessageID, model.ID).Msg("room message stored")
	msg := model.ToDomain()
	return &msg, nil
}

// AddReaction sets the caller's reaction, replacing any previous kind.
func (r *GormForumRepository) AddReaction(ctx context.Context, messageID, userID string, kind domain.ReactionKind) (*domain.RoomMessage, error) {
	if err := requireID(messageID, "message"); err != nil {
		return nil, err
	}
	if _, err := domain.ParseReactionKind(string(kind)); err != nil {
		return nil, err
	}

	var model *domain.RoomMessageModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.requireLiveMessage(tx, messageID); err != nil {
			return err
		}

		reaction := domain.ReactionModel{
			MessageID: messageID,
			UserID:    userID,
			Kind:      string(kind),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "updated_at"}),
		}).Create(&reaction).Error
		if err != nil {
			return err
		}

		model, err = r.loadMessage(tx, messageID)
		return err
	})
	if err != nil {
		return nil, storeError(ctx, err, "failed to add reaction")
	}

	msg := model.ToDomain()
	return &msg, nil
}

// AppendReply adds a reply under a message.
func (r *GormForumRepository) AppendReply(ctx context.Context, messageID, body, authorID string, anonymous bool) (*domain.RoomMessage, error) {
	if err := requireID(messageID, "message"); err != nil {
		return nil, err
	}
	content, err := domain.NormalizeContent(body, domain.MaxReplyLength)
	if err != nil {
		return nil, err
	}

	var model *domain.RoomMessageModel
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.requireLiveMessage(tx, messageID); err != nil {
			return err
		}

		reply := domain.ReplyModel{
			ID:          domain.NewID(),
			MessageID:   messageID,
			AuthorID:    authorID,
			Content:     content,
			IsAnonymous: anonymous,
		}
		if err := tx.Create(&reply).Error; err != nil {
			return err
		}

		model, err = r.loadMessage(tx, messageID)
		return err
	})
	if err != nil {
		return nil, storeError(ctx, err, "failed to append reply")
	}

	msg := model.ToDomain()
	return &msg, nil
}

// SoftDeleteRoomMessage flags the caller's own message as deleted.
// Deleting an already deleted message is a no-op.
func (r *GormForumRepository) SoftDeleteRoomMessage(ctx context.Context, messageID, callerID string) (*domain.RoomMessage, error) {
	if err := requireID(messageID, "message"); err != nil {
		return nil, err
	}

	var model domain.RoomMessageModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, "id = ?", messageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errMessageNotFound
			}
			return err
		}
		if model.AuthorID != callerID {
			return fmt.Errorf("%w: only the author can delete a message", domain.ErrForbidden)
		}
		if model.IsDeleted {
			return nil
		}
		model.IsDeleted = true
		return tx.Model(&domain.RoomMessageModel{}).
			Where("id = ?", messageID).
			UpdateColumn("is_deleted", true).Error
	})
	if err != nil {
		return nil, storeError(ctx, err, "failed to delete room message")
	}

	msg := model.ToDomain()
	return &msg, nil
}

func (r *GormForumRepository) requireLiveMessage(tx *gorm.DB, messageID string) error {
	var count int64
	err := tx.Model(&domain.RoomMessageModel{}).
		Where("id = ? AND is_deleted = ?", messageID, false).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return errMessageNotFound
	}
	return nil
}

func (r *GormForumRepository) loadMessage(tx *gorm.DB, messageID string) (*domain.RoomMessageModel, error) {
	var model domain.RoomMessageModel
	if err := withThread(tx).First(&model, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errMessageNotFound
		}
		return nil, err
	}
	return &model, nil
}

func withThread(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Reactions", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}
