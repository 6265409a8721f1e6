package services

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/beliefatlas/apiserver/internal/logger"
	"github.com/beliefatlas/apiserver/internal/storage"
	"github.com/beliefatlas/apiserver/internal/store"
	"github.com/beliefatlas/apiserver/types"
)

func TestAvatarUploadDownloadRoundTrip(t *testing.T) {
	users := &stubUserRepo{byID: map[string]types.User{
		"u1": {ID: "u1", Username: "alice"},
	}}
	objects := newMemObjectStorage()
	profiles := &recordingProfileRepo{byUser: map[string]types.Profile{}}
	svc := NewProfileService(profiles, users, storage.NewStorage(objects), nil, logger.NewNop())

	key, err := svc.UploadAvatar(context.Background(), "u1", "me.png", "image/png", []byte("img-bytes"))
	if err != nil {
		t.Fatalf("UploadAvatar: %v", err)
	}
	if key != "avatars/u1.png" {
		t.Errorf("key = %q", key)
	}
	if got := users.byID["u1"].AvatarKey; got != key {
		t.Errorf("stored avatar key = %q, want %q", got, key)
	}

	reader, gotKey, err := svc.DownloadAvatar(context.Background(), "u1")
	if err != nil {
		t.Fatalf("DownloadAvatar: %v", err)
	}
	defer reader.Close()
	if gotKey != key {
		t.Errorf("download key = %q, want %q", gotKey, key)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read avatar: %v", err)
	}
	if string(data) != "img-bytes" {
		t.Errorf("avatar bytes = %q", data)
	}
}

func TestDownloadAvatarWithoutUpload(t *testing.T) {
	users := &stubUserRepo{byID: map[string]types.User{
		"u1": {ID: "u1", Username: "alice"},
	}}
	profiles := &recordingProfileRepo{byUser: map[string]types.Profile{}}
	svc := NewProfileService(profiles, users, storage.NewStorage(newMemObjectStorage()), nil, logger.NewNop())

	_, _, err := svc.DownloadAvatar(context.Background(), "u1")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
