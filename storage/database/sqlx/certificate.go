package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/certificate"
)

const certificateColumns = `id, user_id, program_id, issued_at`

type certificateRepository struct {
	db core.DB
}

var _ certificate.Repository = (*certificateRepository)(nil) // interface compliance check

func NewCertificateRepository(db core.DB) *certificateRepository {
	return &certificateRepository{db: db}
}

func (repo *certificateRepository) Issue(ctx context.Context, userID, programID string, at time.Time) (certificate.Certificate, bool, error) {
	inserted, err := exec(ctx, repo.db, `
		INSERT INTO certificates (`+certificateColumns+`) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, program_id) DO NOTHING`,
		newID(), userID, programID, at,
	)
	if err != nil {
		return certificate.Certificate{}, false, errors.Wrap(err, "inserting certificate")
	}

	var cert certificate.Certificate
	err = get(ctx, repo.db, &cert,
		"SELECT "+certificateColumns+" FROM certificates WHERE user_id = ? AND program_id = ?",
		userID, programID,
	)
	if err != nil {
		return certificate.Certificate{}, false, errors.Wrap(err, "selecting certificate")
	}
	return cert, inserted > 0, nil
}

func (repo *certificateRepository) GetCertificate(ctx context.Context, id string) (certificate.Certificate, error) {
	var cert certificate.Certificate
	err := get(ctx, repo.db, &cert, "SELECT "+certificateColumns+" FROM certificates WHERE id = ?", id)
	return cert, trapNoRowsErr(err, certificate.ErrNotFound)
}

func (repo *certificateRepository) ListUserCertificates(ctx context.Context, userID string) ([]certificate.Certificate, error) {
	certs := make([]certificate.Certificate, 0)
	err := sel(ctx, repo.db, &certs,
		"SELECT "+certificateColumns+" FROM certificates WHERE user_id = ? ORDER BY issued_at, id", userID,
	)
	return certs, errors.Wrap(err, "selecting certificates")
}

// CountCertificates feeds the admin statistics.
func (repo *certificateRepository) CountCertificates(ctx context.Context) (int, error) {
	var count int
	err := get(ctx, repo.db, &count, "SELECT COUNT(*) FROM certificates")
	return count, errors.Wrap(err, "counting certificates")
}
