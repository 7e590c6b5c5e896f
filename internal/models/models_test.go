package models

import "testing"

func TestEntityType(t *testing.T) {
	t.Run("ParseEntityType", func(t *testing.T) {
		tests := []struct {
			in      string
			want    EntityType
			wantErr bool
		}{
			{"tracks", Tracks, false},
			{" Artists ", Artists, false},
			{"GENRES", Genres, false},
			{"podcasts", "", true},
			{"", "", true},
		}

		for _, tt := range tests {
			t.Run(tt.in, func(t *testing.T) {
				got, err := ParseEntityType(tt.in)
				if (err != nil) != tt.wantErr {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				if got != tt.want {
					t.Errorf("expected %q, got %q", tt.want, got)
				}
			})
		}
	})

	t.Run("Batch Limits", func(t *testing.T) {
		tests := []struct {
			entity    EntityType
			max       int
			fetchable bool
		}{
			{Tracks, 50, true},
			{Artists, 50, true},
			{Audiobooks, 50, true},
			{Chapters, 50, true},
			{Albums, 20, true},
			{Playlists, 0, true},
			{Genres, 0, false},
		}

		for _, tt := range tests {
			t.Run(tt.entity.String(), func(t *testing.T) {
				if got := tt.entity.MaxBatch(); got != tt.max {
					t.Errorf("expected MaxBatch %d, got %d", tt.max, got)
				}
				if got := tt.entity.SupportsBatch(); got != (tt.max > 0) {
					t.Errorf("expected SupportsBatch %v, got %v", tt.max > 0, got)
				}
				if got := tt.entity.Fetchable(); got != tt.fetchable {
					t.Errorf("expected Fetchable %v, got %v", tt.fetchable, got)
				}
			})
		}
	})

	t.Run("Load Order", func(t *testing.T) {
		types := EntityTypes()
		if types[0] != Genres || types[len(types)-1] != Playlists {
			t.Errorf("expected genres first and playlists last, got %v", types)
		}
	})
}

func TestRecords(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		key     string
		wantErr bool
	}{
		{"genre", Genre{Name: "rock"}, "rock", false},
		{"empty genre", Genre{}, "", true},
		{"artist", Artist{SpotifyID: "a1", Name: "A"}, "a1", false},
		{"artist without name", Artist{SpotifyID: "a1"}, "a1", true},
		{"album without id", Album{Name: "X"}, "", true},
		{"track", Track{Audio: Audio{SpotifyID: "t1", Name: "T"}}, "t1", false},
		{"audiobook without name", Audiobook{Audio: Audio{SpotifyID: "b1"}}, "b1", true},
		{"chapter", Chapter{SpotifyID: "c1", Name: "C"}, "c1", false},
		{"playlist", Playlist{SpotifyID: "p1", Name: "P"}, "p1", false},
		{"link", Link{Left: "a1", Right: "rock"}, "a1|rock", false},
		{"half link", Link{Left: "a1"}, "a1|", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.Key(); got != tt.key {
				t.Errorf("expected key %q, got %q", tt.key, got)
			}
			if err := tt.record.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}
