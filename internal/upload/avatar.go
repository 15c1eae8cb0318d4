// Package upload はアバター画像のアップロード処理を提供する。
// サイズ・形式のサーバー側検証と、衝突やパストラバーサルを防ぐ
// 生成ファイル名での保存を行う。
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hitoshi/boardman/internal/model"
)

// avatarSubdir はアバター保存先のサブディレクトリ名。
const avatarSubdir = "avatars"

// avatarURLPrefix はDBに記録する相対URLのプレフィックス。
const avatarURLPrefix = "/uploads/avatars/"

// sniffLen はcontent type判定に使用する先頭バイト数。
const sniffLen = 512

// allowedTypes は許可するMIMEタイプと保存時の拡張子の対応。
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// MetricsRecorder はアップロード拒否のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordAvatarRejected(reason string)
}

// AvatarStore はアバター画像の検証と保存を行う。
type AvatarStore struct {
	baseDir string
	maxSize int64
	metrics MetricsRecorder // nil許容
}

// NewAvatarStore はAvatarStoreを生成し、保存先ディレクトリを作成する。
func NewAvatarStore(baseDir string, maxSize int64, metrics MetricsRecorder) (*AvatarStore, error) {
	dir := filepath.Join(baseDir, avatarSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create avatar directory: %w", err)
	}

	return &AvatarStore{
		baseDir: baseDir,
		maxSize: maxSize,
		metrics: metrics,
	}, nil
}

// Save は画像を検証して保存し、相対URL（/uploads/avatars/<名前>）を返す。
//
// 検証はクライアント申告値に依存しない:
//   - MIMEタイプは先頭バイトのスニッフィングで判定し、JPEG/PNGのみ許可する
//   - サイズはヘッダー値に加えて書き込みバイト数でも確認する
//
// ファイル名はクライアント指定名を使わずUUIDで生成する
// （名前衝突とパストラバーサルの防止）。
func (s *AvatarStore) Save(file multipart.File, header *multipart.FileHeader) (string, error) {
	if header != nil && header.Size > s.maxSize {
		s.recordRejection("too_large")
		return "", model.NewAvatarTooLargeError(s.maxSize)
	}

	// 先頭バイトからMIMEタイプを判定
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(file, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("failed to read avatar data: %w", err)
	}
	detected := http.DetectContentType(buf[:n])

	ext, ok := allowedTypes[detected]
	if !ok {
		s.recordRejection("bad_type")
		return "", model.NewBadAvatarTypeError(detected)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind avatar data: %w", err)
	}

	name := uuid.NewString() + ext
	dst := filepath.Join(s.baseDir, avatarSubdir, name)

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create avatar file: %w", err)
	}
	defer out.Close()

	// ヘッダーのサイズ申告が偽られていても上限を超えて書き込まない
	written, err := io.Copy(out, io.LimitReader(file, s.maxSize+1))
	if err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to write avatar file: %w", err)
	}
	if written > s.maxSize {
		os.Remove(dst)
		s.recordRejection("too_large")
		return "", model.NewAvatarTooLargeError(s.maxSize)
	}

	return avatarURLPrefix + name, nil
}

// Remove は保存済みアバターを相対URL指定で削除する。
// 相対URLの末尾要素のみを使用し、ディレクトリ外への参照を無効化する。
func (s *AvatarStore) Remove(relPath string) error {
	name := path.Base(relPath)
	if name == "." || name == "/" {
		return fmt.Errorf("invalid avatar path: %q", relPath)
	}

	if err := os.Remove(filepath.Join(s.baseDir, avatarSubdir, name)); err != nil {
		return fmt.Errorf("failed to remove avatar file: %w", err)
	}
	return nil
}

func (s *AvatarStore) recordRejection(reason string) {
	if s.metrics != nil {
		s.metrics.RecordAvatarRejected(reason)
	}
}
