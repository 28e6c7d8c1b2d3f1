// Package certificate holds the issuance record of program completions and
// produces their downloadable artwork.
package certificate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/user"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("certificate")
)

// Certificate is issued at most once per (user, program) and never mutated afterwards.
type Certificate struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	ProgramID string    `json:"program_id" db:"program_id"`
	IssuedAt  time.Time `json:"issued_at" db:"issued_at"`
}

// Artifact is a rendered, downloadable certificate.
type Artifact struct {
	Filename    string
	ContentType string
	Content     []byte
}

// RenderData is what a Renderer needs to draw a certificate.
type RenderData struct {
	Username         string
	FullName         string
	ProgramName      string
	CertificateImage string
	IssuedAt         time.Time
}

// Filename returns `<username>_<program>_certificate.<ext>` with spaces replaced by underscores.
func (rd RenderData) Filename(ext string) string {
	name := fmt.Sprintf("%s_%s_certificate.%s", rd.Username, rd.ProgramName, ext)
	return strings.ReplaceAll(name, " ", "_")
}

type (
	Repository interface {
		// Issue inserts the certificate of (userID, programID) unless it exists, relying on the
		// storage uniqueness constraint. It returns the stored certificate and whether it was created.
		Issue(ctx context.Context, userID, programID string, at time.Time) (Certificate, bool, error)
		GetCertificate(ctx context.Context, id string) (Certificate, error)
		ListUserCertificates(ctx context.Context, userID string) ([]Certificate, error)
		CountCertificates(ctx context.Context) (int, error)
	}

	// Renderer is the document-generation collaborator producing certificate artifacts.
	Renderer interface {
		Render(ctx context.Context, data RenderData) (Artifact, error)
	}

	UserGetter interface {
		GetUserByID(ctx context.Context, id string) (user.User, error)
	}

	// ProgramGetter resolves the program name and artwork printed on a certificate.
	ProgramGetter interface {
		ProgramInfo(ctx context.Context, id string) (name, certificateImage string, err error)
	}

	// IssueHook is notified after a certificate is created (never for a no-op issuance).
	IssueHook interface {
		OnCertificateIssued(ctx context.Context, cert Certificate) error
	}

	Store struct {
		repo     Repository
		renderer Renderer
		users    UserGetter
		programs ProgramGetter
		logger   core.Logger
		hooks    []IssueHook
	}
)

func NewStore(repo Repository, renderer Renderer, users UserGetter, programs ProgramGetter, logger core.Logger) *Store {
	return &Store{repo: repo, renderer: renderer, users: users, programs: programs, logger: logger}
}

// OnCertificateIssued registers hooks run after each creation, in registration order.
func (s *Store) OnCertificateIssued(hooks ...IssueHook) {
	s.hooks = append(s.hooks, hooks...)
}

// Issue creates the certificate of (userID, programID) if absent.
// Issuing an existing certificate is a no-op returning it with created == false.
func (s *Store) Issue(ctx context.Context, userID, programID string) (Certificate, bool, error) {
	cert, created, err := s.repo.Issue(ctx, userID, programID, time.Now().UTC())
	if err != nil {
		return Certificate{}, false, errors.Wrap(err, "issuing certificate")
	}
	if created {
		for _, hook := range s.hooks {
			s.runHook(ctx, hook, cert)
		}
	}
	return cert, created, nil
}

// runHook runs an issue hook. Its failure, panics included, is logged and never reaches the caller.
func (s *Store) runHook(ctx context.Context, hook IssueHook, cert Certificate) {
	extras := map[string]interface{}{
		"certificate_id": cert.ID,
		"user_id":        cert.UserID,
		"program_id":     cert.ProgramID,
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("certificate: issue hook panicked", fmt.Errorf("%v", r), extras)
		}
	}()
	if err := hook.OnCertificateIssued(ctx, cert); err != nil {
		s.logger.Error("certificate: issue hook failed", err, extras)
	}
}

func (s *Store) ListForUser(ctx context.Context, userID string) ([]Certificate, error) {
	return s.repo.ListUserCertificates(ctx, userID)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.repo.CountCertificates(ctx)
}

// Render produces the artifact of an existing certificate.
func (s *Store) Render(ctx context.Context, cert Certificate) (Artifact, error) {
	usr, err := s.users.GetUserByID(ctx, cert.UserID)
	if err != nil {
		return Artifact{}, errors.Wrap(err, "getting certificate user")
	}
	progName, certImage, err := s.programs.ProgramInfo(ctx, cert.ProgramID)
	if err != nil {
		return Artifact{}, errors.Wrap(err, "getting certificate program")
	}
	return s.render(ctx, cert, usr, progName, certImage)
}

func (s *Store) render(ctx context.Context, cert Certificate, usr user.User, progName, certImage string) (Artifact, error) {
	art, err := s.renderer.Render(ctx, RenderData{
		Username:         usr.Username,
		FullName:         usr.FullName(),
		ProgramName:      progName,
		CertificateImage: certImage,
		IssuedAt:         cert.IssuedAt,
	})
	return art, errors.Wrap(err, "rendering certificate")
}

// Download renders a certificate for its owner. Certificates of other users are reported as not found.
func (s *Store) Download(ctx context.Context, actor user.Actor, id string) (Artifact, error) {
	cert, err := s.repo.GetCertificate(ctx, id)
	if err != nil {
		return Artifact{}, err
	}
	if cert.UserID != actor.UserID {
		return Artifact{}, ErrNotFound
	}
	return s.Render(ctx, cert)
}
