package gallery

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Nexus6Mx/see/internal/domain"
	"github.com/Nexus6Mx/see/internal/repository"
)

const (
	tokenBytes       = 32
	defaultTokenDays = 30
)

// Issuer mints gallery access tokens. Only the SHA-256 hash of a token is
// persisted; the plain token exists for the lifetime of the notification
// that carries the link.
type Issuer struct {
	repo       repository.GalleryTokenRepository
	baseURL    string
	tokenDays  int
	logger     *zap.Logger
	now        func() time.Time
	randomRead func(b []byte) (int, error)
}

func NewIssuer(repo repository.GalleryTokenRepository, baseURL string, tokenDays int, logger *zap.Logger) (*Issuer, error) {
	if repo == nil {
		return nil, fmt.Errorf("gallery token repository is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if tokenDays <= 0 {
		tokenDays = defaultTokenDays
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Issuer{
		repo:       repo,
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokenDays:  tokenDays,
		logger:     logger,
		now:        time.Now,
		randomRead: rand.Read,
	}, nil
}

// IssueURL returns a gallery link for an order, minting a token record or
// rotating the hash of a still-active one. Rotation invalidates the link
// sent previously; that is intended for manual resends.
func (i *Issuer) IssueURL(ctx context.Context, orderNumber, createdBy string) (string, error) {
	token, hash, err := i.newToken()
	if err != nil {
		return "", err
	}

	existing, err := i.repo.GetActiveByOrder(ctx, orderNumber)
	switch {
	case err == nil:
		if err := i.repo.RotateHash(ctx, existing.ID, hash); err != nil {
			return "", fmt.Errorf("failed to rotate gallery token: %w", err)
		}
		i.logger.Info("rotated gallery token",
			zap.String("orderNumber", orderNumber),
			zap.Int64("tokenID", existing.ID),
		)
	case errors.Is(err, domain.ErrNotFound):
		record := &repository.GalleryToken{
			TokenHash:   hash,
			OrderNumber: orderNumber,
			ExpiresAt:   i.now().UTC().Add(time.Duration(i.tokenDays) * 24 * time.Hour),
		}
		if by := strings.TrimSpace(createdBy); by != "" {
			record.CreatedBy = &by
		}
		if err := i.repo.Create(ctx, record); err != nil {
			return "", fmt.Errorf("failed to store gallery token: %w", err)
		}
		i.logger.Info("issued gallery token",
			zap.String("orderNumber", orderNumber),
			zap.Int64("tokenID", record.ID),
		)
	default:
		return "", fmt.Errorf("failed to look up gallery token: %w", err)
	}

	return i.buildURL(token), nil
}

func (i *Issuer) buildURL(token string) string {
	return fmt.Sprintf("%s/galeria?t=%s", i.baseURL, token)
}

func (i *Issuer) newToken() (token, hash string, err error) {
	buf := make([]byte, tokenBytes)
	if _, err := i.randomRead(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate gallery token: %w", err)
	}

	token = hex.EncodeToString(buf)
	sum := sha256.Sum256([]byte(token))
	return token, hex.EncodeToString(sum[:]), nil
}

// HashToken maps a plain token to its stored form. Used by the gallery
// endpoint to resolve incoming links.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
