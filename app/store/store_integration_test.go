//go:build integration

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// openTestStore connects to TEST_DATABASE_DSN, applies the schema and empties
// every table.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "0001_init.up.sql"))
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE users, videos, admins RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return New(db)
}

func TestUsersIntegration(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, 1001, "Alice", "+12345678"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.CreateUser(ctx, 1001, "Alice", "+12345678"); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("duplicate CreateUser err = %v", err)
	}
	if err := s.CreateUser(ctx, 1002, "Bob", "7654321"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := s.GetUserByID(ctx, 1001)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if u.FullName != "Alice" || u.Phone != "+12345678" || u.CreatedAt.IsZero() {
		t.Fatalf("user = %+v", u)
	}
	if _, err := s.GetUserByID(ctx, 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user err = %v", err)
	}

	users, err := s.ListUsers(ctx)
	if err != nil || len(users) != 2 || users[0].TelegramID != 1001 {
		t.Fatalf("ListUsers = %+v, %v", users, err)
	}

	if err := s.DeleteUser(ctx, 1001); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if err := s.DeleteUser(ctx, 1001); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteUser err = %v", err)
	}
}

func TestVideosIntegration(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	intro, err := s.CreateVideo(ctx, "Intro", "linkA")
	if err != nil || intro.ID == 0 {
		t.Fatalf("CreateVideo = %+v, %v", intro, err)
	}
	if _, err := s.CreateVideo(ctx, "Outro", "linkB"); err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}

	v, err := s.GetVideoByTitle(ctx, "Intro")
	if err != nil || v.Link != "linkA" {
		t.Fatalf("GetVideoByTitle = %+v, %v", v, err)
	}
	if _, err := s.GetVideoByTitle(ctx, "intro"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("case-insensitive lookup err = %v", err)
	}

	videos, err := s.ListVideos(ctx)
	if err != nil || len(videos) != 2 || videos[0].Title != "Intro" || videos[1].Title != "Outro" {
		t.Fatalf("ListVideos = %+v, %v", videos, err)
	}

	if err := s.DeleteVideo(ctx, intro.ID); err != nil {
		t.Fatalf("DeleteVideo: %v", err)
	}
	if err := s.DeleteVideo(ctx, intro.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteVideo err = %v", err)
	}
}

func TestAdminsIntegration(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if ok, err := s.IsAdmin(ctx, 5); err != nil || ok {
		t.Fatalf("IsAdmin before grant = %v, %v", ok, err)
	}
	if err := s.AddAdmin(ctx, 5); err != nil {
		t.Fatalf("AddAdmin: %v", err)
	}
	if err := s.AddAdmin(ctx, 5); err != nil {
		t.Fatalf("repeated AddAdmin: %v", err)
	}
	if ok, err := s.IsAdmin(ctx, 5); err != nil || !ok {
		t.Fatalf("IsAdmin after grant = %v, %v", ok, err)
	}
}
