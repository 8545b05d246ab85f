package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quizgen-service/internal/app"
	"quizgen-service/internal/domain"
	"quizgen-service/internal/extract"
	"quizgen-service/internal/infra/memory"
	mongostore "quizgen-service/internal/infra/mongo"
	pgstore "quizgen-service/internal/infra/postgres"
	pgmigrations "quizgen-service/internal/infra/postgres/migrations"
	redisstore "quizgen-service/internal/infra/redis"
	"quizgen-service/internal/logger"
	"quizgen-service/internal/metrics"
)

type quizStore interface {
	Save(ctx context.Context, quiz domain.Quiz) error
	Fetch(ctx context.Context, quizID string) (domain.Quiz, error)
	RecordAnswers(ctx context.Context, quizID string, answers domain.AnswerMap, submittedAt time.Time) error
}

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, cleanup := startPostgres(t, ctx)
	defer cleanup()
	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	exerciseStore(t, ctx, pgstore.NewStore(pool))
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, cleanup := startRedis(t, ctx)
	defer cleanup()
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := goredis.NewClient(opts)
	defer client.Close()

	exerciseStore(t, ctx, redisstore.NewStore(client, time.Hour))
}

func TestMongoStore(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	uri, cleanup := startMongo(t, ctx)
	defer cleanup()
	client, err := mongostore.Connect(ctx, uri)
	if err != nil {
		t.Fatalf("connect mongo: %v", err)
	}
	defer client.Disconnect(ctx)

	exerciseStore(t, ctx, mongostore.NewStore(client.Database("quizgen_test")))
}

// TestQuizLifecycleOnPostgres drives create, submit and evaluate through the
// service with the cached Postgres store the server uses.
func TestQuizLifecycleOnPostgres(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, cleanup := startPostgres(t, ctx)
	defer cleanup()
	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	log := logger.NewNop()
	m := metrics.New()
	model := cannedModel{quiz: quizJSON(3), feedback: "Good work on the basics."}
	service := app.NewQuizService(app.Deps{
		Generator: app.NewGenerator(model, extract.New(0), log, m),
		Narrator:  app.NewNarrator(model),
		Store:     memory.NewCachedStore(pgstore.NewStore(pool), time.Minute),
		Log:       log,
		Metrics:   m,
	})

	quiz, err := service.CreateQuiz(ctx, domain.QuizConfig{Topic: "Networking", Difficulty: domain.Beginner, QuestionCount: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := service.SubmitAnswers(ctx, quiz.ID, map[string]string{"Q01": "A", "Q02": "C"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	eval, err := service.Evaluate(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.Score != 1 || eval.Total != 3 || eval.Percentage != 33 {
		t.Fatalf("unexpected evaluation %+v", eval)
	}
	if eval.Feedback != "Good work on the basics." {
		t.Fatalf("unexpected feedback %q", eval.Feedback)
	}
}

func exerciseStore(t *testing.T, ctx context.Context, store quizStore) {
	t.Helper()
	quiz := sampleQuiz()

	if err := store.Save(ctx, quiz); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Fetch(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.Topic != quiz.Topic || got.Difficulty != quiz.Difficulty || !reflect.DeepEqual(got.Questions, quiz.Questions) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, quiz)
	}
	if got.SubmittedAt != nil || len(got.UserAnswers) != 0 {
		t.Fatalf("fresh quiz should have no submission: %+v", got)
	}

	submittedAt := time.Now().UTC().Truncate(time.Millisecond)
	answers := domain.AnswerMap{"Q01": domain.ChoiceB, "Q02": domain.ChoiceA}
	if err := store.RecordAnswers(ctx, quiz.ID, answers, submittedAt); err != nil {
		t.Fatalf("record answers: %v", err)
	}
	got, err = store.Fetch(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("fetch after answers: %v", err)
	}
	if !reflect.DeepEqual(got.UserAnswers, answers) {
		t.Fatalf("answers mismatch: %v", got.UserAnswers)
	}
	if got.SubmittedAt == nil || !got.SubmittedAt.Equal(submittedAt) {
		t.Fatalf("submittedAt mismatch: %v want %v", got.SubmittedAt, submittedAt)
	}

	// A second submission replaces the first one.
	if err := store.RecordAnswers(ctx, quiz.ID, domain.AnswerMap{"Q02": domain.ChoiceD}, submittedAt.Add(time.Second)); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	got, err = store.Fetch(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("fetch after resubmit: %v", err)
	}
	if len(got.UserAnswers) != 1 || got.UserAnswers["Q02"] != domain.ChoiceD {
		t.Fatalf("resubmission not applied: %v", got.UserAnswers)
	}

	if _, err := store.Fetch(ctx, "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found on fetch, got %v", err)
	}
	if err := store.RecordAnswers(ctx, "missing", answers, submittedAt); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found on record, got %v", err)
	}
}

type cannedModel struct {
	quiz     string
	feedback string
}

func (m cannedModel) Invoke(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "scored") {
		return m.feedback, nil
	}
	return m.quiz, nil
}

func quizJSON(n int) string {
	keys := []string{"A", "B", "C", "D"}
	items := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, fmt.Sprintf(
			`{"id": "Q%02d", "questionText": "Question %d?", "choices": {"A": "a", "B": "b", "C": "c", "D": "d"}, "correctChoice": %q}`,
			i, i, keys[(i-1)%4],
		))
	}
	return `{"questions": [` + strings.Join(items, ", ") + `]}`
}

func sampleQuiz() domain.Quiz {
	choices := func(prefix string) map[domain.ChoiceKey]string {
		return map[domain.ChoiceKey]string{
			domain.ChoiceA: prefix + " one",
			domain.ChoiceB: prefix + " two",
			domain.ChoiceC: prefix + " three",
			domain.ChoiceD: prefix + " four",
		}
	}
	return domain.Quiz{
		ID:         "quiz-1",
		Topic:      "Networking",
		Difficulty: domain.Intermediate,
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
		Questions: []domain.Question{
			{ID: "Q01", QuestionText: "Which layer routes packets?", Choices: choices("layer"), CorrectChoice: domain.ChoiceC, Explanation: "The network layer routes."},
			{ID: "Q02", QuestionText: "Which port does HTTPS use?", Choices: choices("port"), CorrectChoice: domain.ChoiceA},
		},
	}
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	container := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	})
	hostPort, err := container.PortEndpoint(ctx, "5432/tcp", "")
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s/quizdb?sslmode=disable", hostPort)
	return dsn, func() { _ = container.Terminate(ctx) }
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	container := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	})
	hostPort, err := container.PortEndpoint(ctx, "6379/tcp", "")
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	url := "redis://" + hostPort
	return url, func() { _ = container.Terminate(ctx) }
}

func startMongo(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	container := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
	})
	hostPort, err := container.PortEndpoint(ctx, "27017/tcp", "")
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}
	uri := "mongodb://" + hostPort
	return uri, func() { _ = container.Terminate(ctx) }
}

func startContainer(t *testing.T, ctx context.Context, req tc.ContainerRequest) tc.Container {
	t.Helper()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start %s: %v", req.Image, err)
	}
	return container
}

func requireDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration tests skipped in short mode")
	}
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
