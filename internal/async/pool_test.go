package async

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menulens/menu-digitizer/constants"
	"github.com/menulens/menu-digitizer/internal/entity"
	"github.com/menulens/menu-digitizer/internal/llm"
	"github.com/menulens/menu-digitizer/internal/pipeline"
	"github.com/menulens/menu-digitizer/internal/repository"
)

const (
	ocrContent = `{"pages":[{"pageIndex":0,"lines":["Nasi Goreng 45000"]}]}`
	menuJSON   = `{"categories":[{"nameEn":"Mains","nameOriginal":null,"nameRu":"Основные блюда","items":[{"originalName":"Nasi Goreng","nameEn":"Fried Rice","nameRu":"Жареный рис","descriptionEn":null,"descriptionRu":null,"priceValue":45000,"priceCurrency":"IDR","isSpicy":false,"approxCalories":null,"isLocalSpecial":false}]}]}`
)

type okGateway struct{}

func (okGateway) RunOCR(context.Context, []llm.ImageRef) (llm.Completion, error) {
	return llm.Completion{Content: ocrContent, Raw: []byte("ocr-raw")}, nil
}

func (okGateway) RunStructuring(context.Context, []byte) (llm.Completion, error) {
	return llm.Completion{Content: menuJSON, Raw: []byte("llm-raw")}, nil
}

// memJobs is a concurrency-safe in-memory JobRepository for pool tests.
type memJobs struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*entity.DigitizationJob
}

func newMemJobs(jobs ...*entity.DigitizationJob) *memJobs {
	m := &memJobs{jobs: make(map[uuid.UUID]*entity.DigitizationJob)}
	for _, j := range jobs {
		m.jobs[j.ID] = j
	}
	return m
}

func (m *memJobs) Create(context.Context, uuid.UUID, []string) (*entity.DigitizationJob, error) {
	panic("not used")
}

func (m *memJobs) GetByID(_ context.Context, id uuid.UUID) (*entity.DigitizationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j := *m.jobs[id]
	return &j, nil
}

func (m *memJobs) ListQueued(context.Context, int) ([]*entity.DigitizationJob, error) {
	return nil, nil
}

func (m *memJobs) MarkProcessing(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].Status = constants.JobStatusProcessing
	return nil
}

func (m *memJobs) FinishSuccess(_ context.Context, id uuid.UUID, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].Status = constants.JobStatusCompleted
	return nil
}

func (m *memJobs) FinishFailure(_ context.Context, id uuid.UUID, msg, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].Status = constants.JobStatusFailed
	m.jobs[id].ErrorMessage = &msg
	return nil
}

func (m *memJobs) status(id uuid.UUID) constants.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jobs[id].Status
}

type memMenu struct {
	mu    sync.Mutex
	calls int
}

func (m *memMenu) ReplaceMenu(context.Context, uuid.UUID, uuid.UUID, llm.StructuredMenu) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return nil
}

func (m *memMenu) ListMenu(context.Context, uuid.UUID) ([]repository.MenuView, error) {
	return nil, nil
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func queuedJob() *entity.DigitizationJob {
	return &entity.DigitizationJob{
		ID:        uuid.New(),
		VenueID:   uuid.New(),
		Status:    constants.JobStatusQueued,
		ImageRefs: []string{"https://img/menu-1.jpg"},
	}
}

func TestPoolDrainsTasks(t *testing.T) {
	jobs := []*entity.DigitizationJob{queuedJob(), queuedJob(), queuedJob()}
	repo := newMemJobs(jobs...)
	menu := &memMenu{}

	dig := pipeline.NewDigitizer(okGateway{}, pipeline.Config{}, quiet())
	proc := pipeline.NewProcessor(quiet(), repo, menu, dig)

	pool := NewPool(quiet(), proc, 2, 8)
	pool.Start(context.Background(), 2)

	for _, j := range jobs {
		require.NoError(t, pool.Enqueue(context.Background(), Task{JobID: j.ID, SubmittedAt: time.Now()}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool.Shutdown(ctx)

	for _, j := range jobs {
		assert.Equal(t, constants.JobStatusCompleted, repo.status(j.ID))
	}
	assert.Equal(t, 3, menu.calls)
}

func TestPoolEnqueueFullQueue(t *testing.T) {
	pool := NewPool(quiet(), nil, 1, 1)
	// No workers started; the buffer holds exactly one task.
	require.NoError(t, pool.Enqueue(context.Background(), Task{JobID: uuid.New()}))
	err := pool.Enqueue(context.Background(), Task{JobID: uuid.New()})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestPoolEnqueueAfterShutdown(t *testing.T) {
	pool := NewPool(quiet(), nil, 1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	pool.Shutdown(ctx)

	assert.NotPanics(t, func() {
		err := pool.Enqueue(context.Background(), Task{JobID: uuid.New()})
		assert.ErrorIs(t, err, ErrQueueClosed)
	})
}

func TestPoolShutdownWithoutStart(t *testing.T) {
	pool := NewPool(quiet(), nil, 1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NotPanics(t, func() { pool.Shutdown(ctx) })
	// Shutdown is idempotent.
	assert.NotPanics(t, func() { pool.Shutdown(ctx) })
}
