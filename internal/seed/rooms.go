// Package seed installs the fixed forum rooms and, for local development,
// a few directory users.
package seed

import (
	"context"

	"github.com/manobala/peer-chat/internal/cache"
	"github.com/manobala/peer-chat/internal/domain"
	"github.com/manobala/peer-chat/internal/repository"
	"github.com/manobala/peer-chat/pkg/log"
)

// DefaultRooms is the room catalogue. Rooms are keyed by type, so seeding
// twice leaves existing rooms and their counters untouched.
var DefaultRooms = []domain.Room{
	{
		Name:        "Anxiety Support Circle",
		Description: "A safe space to share experiences, coping strategies, and support each other through anxiety challenges. Whether dealing with generalized anxiety, panic attacks, or social anxiety, you're not alone here.",
		Type:        domain.RoomTypeAnxietySupport,
		Category:    domain.CategoryMentalWellness,
		Icon:        "🧘",
		Color:       "#10B981",
	},
	{
		Name:        "Depression Recovery Community",
		Description: "Connect with others on their journey through depression. Share your story, find hope, and discover practical tools for healing and recovery in a compassionate environment.",
		Type:        domain.RoomTypeDepressionHelp,
		Category:    domain.CategorySupportGroups,
		Icon:        "🌱",
		Color:       "#3B82F6",
	},
	{
		Name:        "Wellness & Lifestyle Hub",
		Description: "Focus on building healthy habits, mindfulness practices, self-care routines, and lifestyle changes that support mental wellbeing. Celebrate small wins and motivate each other!",
		Type:        domain.RoomTypeWellnessLifestyle,
		Category:    domain.CategoryMentalWellness,
		Icon:        "✨",
		Color:       "#8B5CF6",
	},
	{
		Name:        "Child Abuse Support",
		Description: "A safe space to discuss and seek support for child abuse-related issues.",
		Type:        domain.RoomTypeChildAbuse,
		Category:    domain.CategoryCrisisSupport,
	},
	{
		Name:        "Domestic Abuse Support",
		Description: "Support group for those affected by domestic abuse.",
		Type:        domain.RoomTypeDomesticAbuse,
		Category:    domain.CategoryCrisisSupport,
	},
	{
		Name:        "Workplace Abuse Support",
		Description: "Discussion and support for workplace abuse and harassment.",
		Type:        domain.RoomTypeWorkplaceAbuse,
		Category:    domain.CategoryCrisisSupport,
	},
}

// DevUsers are directory entries for local testing of expert chats.
var DevUsers = []domain.User{
	{ID: "dev-user", Name: "Dev User", Email: "user@example.com"},
	{ID: "dev-expert", Name: "Dev Expert", Email: "expert@example.com", IsExpert: true},
}

// Rooms ensures every default room exists and returns how many were
// created. A cached room listing is dropped when any room was added.
func Rooms(ctx context.Context, repo repository.ForumRepository, c cache.Cache) (int, error) {
	l := log.Ctx(ctx)
	created := 0
	for _, tmpl := range DefaultRooms {
		room := tmpl
		ok, err := repo.EnsureRoom(ctx, &room)
		if err != nil {
			return created, err
		}
		if ok {
			created++
			l.Info().Str(log.FieldRoomID, room.ID).Str("type", string(room.Type)).Msg("room created")
		}
	}
	if created > 0 {
		if err := c.InvalidateRooms(ctx); err != nil {
			l.Warn().Err(err).Msg("failed to drop cached room listing")
		}
	}
	return created, nil
}

func Users(ctx context.Context, dir repository.UserDirectory, users []domain.User) error {
	for i := range users {
		if err := dir.UpsertUser(ctx, &users[i]); err != nil {
			return err
		}
	}
	return nil
}
