package memory

import (
	"context"
	"fmt"

	"github.com/santafilomena/staycore/internal/domain"
)

func intp(v int) *int { return &v }

// DemoRooms is the catalog loaded when the service runs without a database.
func DemoRooms() []domain.Room {
	return []domain.Room{
		{
			Name:          "Singola Giardino",
			Type:          domain.RoomSingle,
			Capacity:      1,
			PricePerNight: 8500,
			SizeSqm:       intp(14),
			BedType:       "singolo",
			Floor:         intp(0),
			View:          "giardino",
			Amenities:     domain.Amenities{AirCon: true, Safe: true, NonSmoking: true},
			IsAvailable:   true,
		},
		{
			Name:          "Doppia Classica",
			Type:          domain.RoomTwin,
			Capacity:      2,
			PricePerNight: 11000,
			SizeSqm:       intp(20),
			BedType:       "due singoli",
			Floor:         intp(1),
			View:          "cortile",
			Amenities:     domain.Amenities{AirCon: true, Minibar: true, Safe: true, NonSmoking: true},
			IsAvailable:   true,
		},
		{
			Name:          "Matrimoniale Vista Mare",
			Type:          domain.RoomDouble,
			Capacity:      2,
			PricePerNight: 12050,
			SizeSqm:       intp(22),
			BedType:       "matrimoniale",
			Floor:         intp(2),
			View:          "mare",
			Amenities:     domain.Amenities{Balcony: true, AirCon: true, Minibar: true, Safe: true, Bathrobe: true},
			IsAvailable:   true,
			IsFeatured:    true,
		},
		{
			Name:          "Junior Suite",
			Type:          domain.RoomJuniorSuite,
			Capacity:      3,
			PricePerNight: 19900,
			SizeSqm:       intp(35),
			BedType:       "king size",
			Floor:         intp(2),
			View:          "mare",
			Amenities:     domain.Amenities{Balcony: true, AirCon: true, Minibar: true, Safe: true, Bathrobe: true, NonSmoking: true},
			IsAvailable:   true,
			IsFeatured:    true,
		},
		{
			Name:          "Camera Panoramica",
			Type:          domain.RoomPanoramic,
			Capacity:      2,
			PricePerNight: 16500,
			SizeSqm:       intp(26),
			BedType:       "matrimoniale",
			Floor:         intp(3),
			View:          "golfo",
			Amenities:     domain.Amenities{Terrace: true, AirCon: true, Minibar: true, Safe: true},
			IsAvailable:   true,
		},
		{
			Name:          "Casale degli Ulivi",
			Type:          domain.RoomFarmhouse,
			Capacity:      6,
			PricePerNight: 32000,
			SizeSqm:       intp(90),
			BedType:       "matrimoniale + 2 singoli",
			View:          "uliveto",
			Amenities:     domain.Amenities{Terrace: true, AirCon: true, PetFriendly: true, Accessible: true},
			IsAvailable:   true,
		},
	}
}

// Seed stores rooms in s, filling in their IDs.
func Seed(ctx context.Context, s *Store, rooms []domain.Room) error {
	const op = "memory.Seed"

	for i := range rooms {
		if err := s.Rooms().CreateRoom(ctx, &rooms[i]); err != nil {
			return fmt.Errorf("%s: %s: %w", op, rooms[i].Name, err)
		}
	}

	return nil
}
