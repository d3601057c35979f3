package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/heilo27/rightrudder/internal/app/connectivity"
	"github.com/heilo27/rightrudder/internal/app/models"
	"github.com/heilo27/rightrudder/internal/app/remote"
	"github.com/heilo27/rightrudder/internal/app/repositories"
	"github.com/heilo27/rightrudder/internal/app/repositories/memory"
	"github.com/heilo27/rightrudder/internal/pkg/events"
	"github.com/heilo27/rightrudder/internal/pkg/idmap"
	"github.com/heilo27/rightrudder/internal/pkg/savequeue"
)

// serviceFixture wires the full service graph over in-memory repositories and
// an in-memory remote store.
type serviceFixture struct {
	ctx     context.Context
	repos   *repositories.Repositories
	store   *remote.MemoryStore
	queue   *savequeue.Queue
	hub     *events.Hub
	mapper  *idmap.Mapper
	monitor *connectivity.ManualMonitor

	students    StudentService
	templates   TemplateService
	assignments AssignmentService
	sync        SyncService
	conflicts   ConflictService
	offline     OfflineService
	integrity   IntegrityService
	shares      ShareService
	exports     ExportService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mapper, err := idmap.New()
	require.NoError(t, err)

	lgr := zerolog.Nop()
	f := &serviceFixture{
		ctx:     ctx,
		repos:   memory.NewRepositories(),
		store:   remote.NewMemoryStore(),
		queue:   savequeue.New(16, lgr),
		hub:     events.NewHub(lgr),
		mapper:  mapper,
		monitor: connectivity.NewManualMonitor(true),
	}
	f.queue.Start(ctx)

	f.conflicts = NewConflictService(f.repos, f.queue, lgr)
	f.sync = NewSyncService(f.repos, f.store, f.conflicts, "student-", lgr)
	f.conflicts.SetPusher(f.sync)
	f.offline = NewOfflineService(f.repos, f.queue, f.sync, f.monitor, time.Minute, time.Hour, lgr)
	f.students = NewStudentService(f.repos, f.queue, f.sync, f.offline, f.monitor, lgr)
	f.templates = NewTemplateService(f.repos, f.queue, lgr)
	f.assignments = NewAssignmentService(f.repos, f.queue, mapper, f.sync, f.offline, f.monitor, f.hub, lgr)
	f.integrity = NewIntegrityService(f.repos, f.queue, mapper, f.hub, lgr)
	f.shares = NewShareService(f.repos, f.queue, f.store, f.sync, lgr)
	f.exports = NewExportService(f.repos, f.queue, "test", lgr)

	return f
}

func (f *serviceFixture) createStudent(t *testing.T, firstName, lastName string) *models.Student {
	t.Helper()
	student, err := f.students.Create(f.ctx, StudentInput{FirstName: firstName, LastName: lastName})
	require.NoError(t, err)
	return student
}

func (f *serviceFixture) createTemplate(t *testing.T, name string, itemTitles ...string) *models.Template {
	t.Helper()
	items := make([]TemplateItemInput, 0, len(itemTitles))
	for _, title := range itemTitles {
		items = append(items, TemplateItemInput{Title: title})
	}
	template, err := f.templates.Create(f.ctx, name, "Private Pilot", "Pre-Solo", items)
	require.NoError(t, err)
	return template
}

// createBuiltInTemplate seeds a catalog template whose identifier resolves
// through the mapping table.
func (f *serviceFixture) createBuiltInTemplate(t *testing.T, identifier string, itemCount int) *models.Template {
	t.Helper()
	now := time.Now().UTC()
	template := &models.Template{
		ID:                 uuid.New(),
		Name:               identifier,
		Category:           "Private Pilot",
		TemplateIdentifier: identifier,
		CreatedAt:          now,
		LastModified:       now,
	}
	for i := 0; i < itemCount; i++ {
		template.Items = append(template.Items, models.TemplateItem{
			ID:           uuid.New(),
			TemplateID:   template.ID,
			Title:        identifier,
			DisplayOrder: i,
		})
	}
	template.ContentHash = template.ComputeContentHash()
	require.NoError(t, f.repos.Templates.Create(f.ctx, template))
	return template
}

// shareStudent marks the student as actively shared so edits push remotely.
func (f *serviceFixture) shareStudent(t *testing.T, studentID uuid.UUID) {
	t.Helper()
	share, err := f.shares.CreateShare(f.ctx, studentID)
	require.NoError(t, err)
	require.NotEmpty(t, share.ID)
}
