package auth

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"testing"
	"time"

	"github.com/hitoshi/boardman/internal/model"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn   func(ctx context.Context, id string) (*model.User, error)
	findByNameFn func(ctx context.Context, name string) (*model.User, error)
	createFn     func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByName(ctx context.Context, name string) (*model.User, error) {
	if m.findByNameFn != nil {
		return m.findByNameFn(ctx, name)
	}
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

// fakeHasher はテスト高速化のためのPasswordHasher実装。
type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (fakeHasher) Verify(plain, hash string) bool    { return hash == "hashed:"+plain }

type mockAvatarStore struct {
	saveFn   func(file multipart.File, header *multipart.FileHeader) (string, error)
	removeFn func(relPath string) error
	removed  []string
}

func (m *mockAvatarStore) Save(file multipart.File, header *multipart.FileHeader) (string, error) {
	if m.saveFn != nil {
		return m.saveFn(file, header)
	}
	return "/uploads/avatars/fake.png", nil
}
func (m *mockAvatarStore) Remove(relPath string) error {
	m.removed = append(m.removed, relPath)
	if m.removeFn != nil {
		return m.removeFn(relPath)
	}
	return nil
}

type mockCaptcha struct {
	verifyFn func(ctx context.Context, token, remoteIP string) error
}

func (m *mockCaptcha) Verify(ctx context.Context, token, remoteIP string) error {
	return m.verifyFn(ctx, token, remoteIP)
}

type fakeFile struct {
	*bytes.Reader
}

func (fakeFile) Close() error { return nil }

func newTestService(users *mockUserRepo, captcha CaptchaVerifier, avatars AvatarStore) *Service {
	if avatars == nil {
		avatars = &mockAvatarStore{}
	}
	tokens := NewTokenManager([]byte("0123456789abcdef0123456789abcdef"), 24*time.Hour)
	return NewService(users, fakeHasher{}, tokens, captcha, avatars, nil)
}

// --- Register ---

// 登録成功時に検証可能なトークンとユーザー情報が返ることを検証
func TestService_Register_Succeeds(t *testing.T) {
	var created *model.User
	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := newTestService(users, nil, nil)

	result, err := svc.Register(context.Background(), RegisterInput{Name: "alice", Password: "pw1"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if created == nil {
		t.Fatal("user should have been created")
	}
	if created.PasswordHash == "pw1" {
		t.Error("password must not be stored in plaintext")
	}
	if result.User.Name != "alice" {
		t.Errorf("result.User.Name = %q, want alice", result.User.Name)
	}

	uid, err := svc.tokens.Verify(result.Token)
	if err != nil || uid != created.ID {
		t.Errorf("token should verify to the created user: (%q, %v)", uid, err)
	}
}

// 同名ユーザーが既に存在する場合にDUPLICATE_USERが返ることを検証
func TestService_Register_DuplicateName_Fails(t *testing.T) {
	users := &mockUserRepo{
		findByNameFn: func(ctx context.Context, name string) (*model.User, error) {
			return &model.User{ID: "existing", Name: name}, nil
		},
		createFn: func(ctx context.Context, user *model.User) error {
			t.Fatal("Create should not be called for a duplicate name")
			return nil
		},
	}
	svc := newTestService(users, nil, nil)

	_, err := svc.Register(context.Background(), RegisterInput{Name: "alice", Password: "pw1"})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateUser {
		t.Errorf("error = %v, want DUPLICATE_USER", err)
	}
}

// 名前・パスワード未指定でVALIDATION_ERRORが返ることを検証
func TestService_Register_MissingFields_Fails(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, nil, nil)

	for _, input := range []RegisterInput{
		{Name: "", Password: "pw1"},
		{Name: "alice", Password: ""},
	} {
		_, err := svc.Register(context.Background(), input)

		var apiErr *model.APIError
		if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidation {
			t.Errorf("Register(%+v) error = %v, want VALIDATION_ERROR", input, err)
		}
	}
}

// INSERT時の一意制約違反（事前チェックとのレース）でもDUPLICATE_USERが返り、
// 保存済みアバターが削除されることを検証
func TestService_Register_CreateRace_CleansUpAvatar(t *testing.T) {
	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return model.NewDuplicateUserError()
		},
	}
	avatars := &mockAvatarStore{}
	svc := newTestService(users, nil, avatars)

	input := RegisterInput{
		Name:     "alice",
		Password: "pw1",
		Avatar:   fakeFile{bytes.NewReader([]byte("png-data"))},
	}
	_, err := svc.Register(context.Background(), input)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeDuplicateUser {
		t.Errorf("error = %v, want DUPLICATE_USER", err)
	}
	if len(avatars.removed) != 1 {
		t.Errorf("stored avatar should be removed on create failure, removed = %v", avatars.removed)
	}
}

// アバター保存成功時にユーザーへ相対URLが記録されることを検証
func TestService_Register_WithAvatar_RecordsPath(t *testing.T) {
	var created *model.User
	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	avatars := &mockAvatarStore{
		saveFn: func(file multipart.File, header *multipart.FileHeader) (string, error) {
			return "/uploads/avatars/abc.png", nil
		},
	}
	svc := newTestService(users, nil, avatars)

	input := RegisterInput{
		Name:     "alice",
		Password: "pw1",
		Avatar:   fakeFile{bytes.NewReader([]byte("png-data"))},
	}
	result, err := svc.Register(context.Background(), input)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if created.Avatar != "/uploads/avatars/abc.png" {
		t.Errorf("created.Avatar = %q, want /uploads/avatars/abc.png", created.Avatar)
	}
	if result.User.Avatar != "/uploads/avatars/abc.png" {
		t.Errorf("result.User.Avatar = %q", result.User.Avatar)
	}
}

// アバター拒否時にアカウントが作成されないことを検証
func TestService_Register_AvatarRejected_NoAccountCreated(t *testing.T) {
	users := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			t.Fatal("Create should not be called when the avatar is rejected")
			return nil
		},
	}
	avatars := &mockAvatarStore{
		saveFn: func(file multipart.File, header *multipart.FileHeader) (string, error) {
			return "", model.NewAvatarTooLargeError(5 * 1024 * 1024)
		},
	}
	svc := newTestService(users, nil, avatars)

	input := RegisterInput{
		Name:     "alice",
		Password: "pw1",
		Avatar:   fakeFile{bytes.NewReader(make([]byte, 16))},
	}
	_, err := svc.Register(context.Background(), input)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeAvatarTooLarge {
		t.Errorf("error = %v, want AVATAR_TOO_LARGE", err)
	}
}

// --- Login ---

// 登録済み資格情報でログインが成功し、トークンが検証に通ることを検証
func TestService_Login_Succeeds(t *testing.T) {
	users := &mockUserRepo{
		findByNameFn: func(ctx context.Context, name string) (*model.User, error) {
			return &model.User{ID: "user-1", Name: name, PasswordHash: "hashed:pw1"}, nil
		},
	}
	svc := newTestService(users, nil, nil)

	result, err := svc.Login(context.Background(), "alice", "pw1", "", "")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	uid, err := svc.tokens.Verify(result.Token)
	if err != nil || uid != "user-1" {
		t.Errorf("token should verify to user-1: (%q, %v)", uid, err)
	}
}

// ユーザー名不明とパスワード不一致が同一のエラーメッセージになることを検証
// （ユーザー列挙の手がかりを与えない）
func TestService_Login_UnknownUserAndWrongPassword_SameError(t *testing.T) {
	unknownUsers := &mockUserRepo{
		findByNameFn: func(ctx context.Context, name string) (*model.User, error) {
			return nil, nil
		},
	}
	knownUsers := &mockUserRepo{
		findByNameFn: func(ctx context.Context, name string) (*model.User, error) {
			return &model.User{ID: "user-1", Name: name, PasswordHash: "hashed:right"}, nil
		},
	}

	_, errUnknown := newTestService(unknownUsers, nil, nil).Login(context.Background(), "ghost", "pw", "", "")
	_, errWrongPw := newTestService(knownUsers, nil, nil).Login(context.Background(), "alice", "wrong", "", "")

	var apiErr1, apiErr2 *model.APIError
	if !errors.As(errUnknown, &apiErr1) || apiErr1.Code != model.ErrCodeInvalidCreds {
		t.Fatalf("unknown user error = %v, want INVALID_CREDENTIALS", errUnknown)
	}
	if !errors.As(errWrongPw, &apiErr2) || apiErr2.Code != model.ErrCodeInvalidCreds {
		t.Fatalf("wrong password error = %v, want INVALID_CREDENTIALS", errWrongPw)
	}
	if apiErr1.Message != apiErr2.Message {
		t.Errorf("error messages must be identical: %q vs %q", apiErr1.Message, apiErr2.Message)
	}
}

// CAPTCHA検証が資格情報の確認より先に行われ、失敗時は確認に進まないことを検証
func TestService_Login_CaptchaFailure_BlocksCredentialCheck(t *testing.T) {
	users := &mockUserRepo{
		findByNameFn: func(ctx context.Context, name string) (*model.User, error) {
			t.Fatal("credentials should not be checked when CAPTCHA fails")
			return nil, nil
		},
	}
	captcha := &mockCaptcha{
		verifyFn: func(ctx context.Context, token, remoteIP string) error {
			return model.NewCaptchaFailedError()
		},
	}
	svc := newTestService(users, captcha, nil)

	_, err := svc.Login(context.Background(), "alice", "pw1", "bad-token", "203.0.113.1")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeCaptchaFailed {
		t.Errorf("error = %v, want CAPTCHA_FAILED", err)
	}
}

// CAPTCHA無効時（verifier未設定）は検証なしでログインできることを検証
func TestService_Login_CaptchaDisabled_Skipped(t *testing.T) {
	users := &mockUserRepo{
		findByNameFn: func(ctx context.Context, name string) (*model.User, error) {
			return &model.User{ID: "user-1", Name: name, PasswordHash: "hashed:pw1"}, nil
		},
	}
	svc := newTestService(users, nil, nil)

	if _, err := svc.Login(context.Background(), "alice", "pw1", "", ""); err != nil {
		t.Errorf("Login() error = %v, want nil", err)
	}
}
