package service

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lesson_platform_backend/internal/model"
	"lesson_platform_backend/internal/repository"
	"lesson_platform_backend/internal/testutil"
	"lesson_platform_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newNotesService(t *testing.T) (*PersonalFileService, *gorm.DB, string) {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := testutil.Config(t)
	svc := NewPersonalFileService(repository.NewPersonalFileRepository(db), NewStorageService(cfg), util.NewUploadLimit(cfg.Notes.MaxUploadBytes()))
	return svc, db, cfg.Storage.LocalPath
}

func TestNotesCRUD(t *testing.T) {
	svc, db, _ := newNotesService(t)
	user := testutil.CreateUser(t, db, "s@example.com", model.Student, 0)
	other := testutil.CreateUser(t, db, "o@example.com", model.Student, 0)

	note, err := svc.CreateNote(user.ID, "../loops.md", "for i in range(3)")
	require.NoError(t, err)
	assert.Equal(t, "loops.md", note.Name)
	assert.Equal(t, int64(17), note.Size)

	_, err = svc.CreateNote(user.ID, "  ", "x")
	assert.ErrorIs(t, err, util.ErrInvalidFileType)

	list, total, err := svc.List(user.ID, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Content)

	_, total, err = svc.List(other.ID, "", 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = svc.Get(other.ID, note.ID)
	assert.ErrorIs(t, err, util.ErrFileNotFound)

	content := "while True: break"
	updated, err := svc.Update(user.ID, note.ID, UpdateNoteReq{Content: &content})
	require.NoError(t, err)
	assert.Equal(t, content, updated.Content)
	assert.Equal(t, int64(len(content)), updated.Size)

	_, rc, err := svc.Open(context.Background(), user.ID, note.ID)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, content, string(body))

	assert.ErrorIs(t, svc.Delete(context.Background(), other.ID, note.ID), util.ErrFileNotFound)
	require.NoError(t, svc.Delete(context.Background(), user.ID, note.ID))
	_, err = svc.Get(user.ID, note.ID)
	assert.ErrorIs(t, err, util.ErrFileNotFound)
}

func TestNoteSizeLimit(t *testing.T) {
	svc, db, _ := newNotesService(t)
	user := testutil.CreateUser(t, db, "s@example.com", model.Student, 0)

	big := strings.Repeat("x", int(svc.MaxUpload())+1)
	_, err := svc.CreateNote(user.ID, "big.txt", big)
	assert.ErrorIs(t, err, util.ErrFileTooLarge)

	note, err := svc.CreateNote(user.ID, "small.txt", "ok")
	require.NoError(t, err)
	_, err = svc.Update(user.ID, note.ID, UpdateNoteReq{Content: &big})
	assert.ErrorIs(t, err, util.ErrFileTooLarge)
}

func TestUploadStoresObject(t *testing.T) {
	svc, db, root := newNotesService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "s@example.com", model.Student, 0)

	data := []byte("plain text notes\nline two\n")
	f, err := svc.Upload(ctx, user.ID, "Notes.TXT", int64(len(data)), bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, f.IsUpload())
	assert.True(t, strings.HasPrefix(f.ContentType, "text/plain"))
	assert.True(t, strings.HasSuffix(f.ObjectKey, ".txt"))
	assert.Equal(t, "/uploads/"+f.ObjectKey, f.URL)

	stored := filepath.Join(root, filepath.FromSlash(f.ObjectKey))
	onDisk, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, data, onDisk)

	_, rc, err := svc.Open(ctx, user.ID, f.ID)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, data, got)

	content := "edited"
	_, err = svc.Update(user.ID, f.ID, UpdateNoteReq{Content: &content})
	assert.ErrorIs(t, err, util.ErrInvalidFileType)

	name := "renamed.txt"
	renamed, err := svc.Update(user.ID, f.ID, UpdateNoteReq{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, renamed.Name)

	require.NoError(t, svc.Delete(ctx, user.ID, f.ID))
	_, err = os.Stat(stored)
	assert.True(t, os.IsNotExist(err))
}

func TestUploadRejectsBinary(t *testing.T) {
	svc, db, _ := newNotesService(t)
	user := testutil.CreateUser(t, db, "s@example.com", model.Student, 0)

	data := []byte{0x00, 0x01, 0x02, 0x03, 0xfe, 0xff}
	_, err := svc.Upload(context.Background(), user.ID, "blob.bin", int64(len(data)), bytes.NewReader(data))
	assert.ErrorIs(t, err, util.ErrInvalidFileType)

	_, err = svc.Upload(context.Background(), user.ID, "big.txt", svc.MaxUpload()+1, bytes.NewReader([]byte("x")))
	assert.ErrorIs(t, err, util.ErrFileTooLarge)
}
