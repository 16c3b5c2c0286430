//go:build integration

package repositories

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/humanand/humanand/pkg/models"
	"github.com/humanand/humanand/pkg/testhelpers"
)

func TestPostgresEventRepository(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)

	eventRepositoryContract(t, func(t *testing.T) EventRepository {
		// The table is shared; a fresh prefix keeps subtests apart.
		return &prefixedRepo{
			EventRepository: NewPostgresEventRepository(testDB.DB, zaptest.NewLogger(t)),
			prefix:          uuid.NewString()[:8] + "-",
		}
	})
}

// prefixedRepo namespaces project names so contract subtests sharing one
// database don't see each other's rows.
type prefixedRepo struct {
	EventRepository
	prefix string
}

func (p *prefixedRepo) Append(ctx context.Context, project string, e *models.Event) error {
	return p.EventRepository.Append(ctx, p.name(project), e)
}

func (p *prefixedRepo) List(ctx context.Context, project string) ([]*models.Event, error) {
	return p.EventRepository.List(ctx, p.name(project))
}

func (p *prefixedRepo) Projects(ctx context.Context) ([]string, error) {
	all, err := p.EventRepository.Projects(ctx)
	if err != nil {
		return nil, err
	}
	var mine []string
	for _, name := range all {
		if strings.HasPrefix(name, p.prefix) {
			mine = append(mine, strings.TrimPrefix(name, p.prefix))
		}
	}
	return mine, nil
}

// Close leaves the shared pool open.
func (p *prefixedRepo) Close() error { return nil }

func (p *prefixedRepo) name(project string) string {
	if project == "" || strings.ContainsAny(project, "/\\:.") {
		return project
	}
	return p.prefix + project
}
