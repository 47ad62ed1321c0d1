package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/filex"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/avatar"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

const defaultImageTimeout = 10 * time.Second

// Upload is one received file: where the transport saved it and the name the
// client sent.
type Upload struct {
	TempPath     string
	OriginalName string
}

// AvatarService turns an uploaded image into the account's avatar.
type AvatarService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	storage      avatar.Storage
	imageTimeout time.Duration
	log          logging.Logger

	normalize func(ctx context.Context, path string) error
}

func NewAvatarService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	storage avatar.Storage, log logging.Logger) *AvatarService {
	timeout := cfg.ImageTimeout
	if timeout <= 0 {
		timeout = defaultImageTimeout
	}
	return &AvatarService{
		db:           db,
		repomanager:  m,
		storage:      storage,
		imageTimeout: timeout,
		log:          log.With("module", "avatars"),
		normalize:    avatar.Normalize,
	}
}

// AvatarName is the published file name for an account: the account id plus
// the lower-cased extension of the uploaded file name.
func AvatarName(accountID, originalName string) string {
	return accountID + strings.ToLower(filepath.Ext(originalName))
}

// Update checks the extension against the sniffed type, then runs decode,
// resize, publish, persist. The temp file is removed
// whatever happens. A failed persist after a successful publish leaves the
// new file in place with the old URL stored; that is logged and returned.
func (s *AvatarService) Update(ctx context.Context, identity *models.Identity, up *Upload) (avatarURL string, err error) {
	if up == nil || up.TempPath == "" {
		return "", fmt.Errorf("%w: no file uploaded", common.ErrValidation)
	}
	defer func() {
		if rmErr := filex.RemoveIfExists(up.TempPath); rmErr != nil {
			s.log.Warn(ctx, "remove temp upload", "path", up.TempPath, "error", rmErr)
		}
	}()

	ext := filepath.Ext(up.OriginalName)
	if !avatar.AllowedExtension(ext) {
		return "", fmt.Errorf("%w: unsupported file extension %q", common.ErrValidation, ext)
	}
	if err := avatar.CheckExtension(up.TempPath, ext); err != nil {
		if errors.Is(err, avatar.ErrExtensionMismatch) {
			return "", fmt.Errorf("%w: %w", common.ErrValidation, err)
		}
		return "", fmt.Errorf("%w: %w", common.ErrProcessing, err)
	}

	imgCtx, cancel := context.WithTimeout(ctx, s.imageTimeout)
	err = s.normalize(imgCtx, up.TempPath)
	cancel()
	if err != nil {
		return "", fmt.Errorf("%w: normalize image: %w", common.ErrProcessing, err)
	}

	name := AvatarName(identity.ID, up.OriginalName)

	url, err := s.storage.Publish(ctx, up.TempPath, name)
	if err != nil {
		return "", fmt.Errorf("%w: publish %s: %w", common.ErrProcessing, name, err)
	}

	if _, err := s.repomanager.Accounts(s.db).UpdateFields(ctx, identity.ID, models.AccountFields{AvatarURL: &url}); err != nil {
		s.log.Error(ctx, "avatar published but url not stored", "account_id", identity.ID, "url", url, "error", err)
		return "", fmt.Errorf("%w: store avatar url: %w", common.ErrProcessing, err)
	}

	s.log.Info(ctx, "avatar updated", "account_id", identity.ID, "url", url)
	return url, nil
}
