package intake

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/isoura4/isrobot-backend/internal/analysis"
	"github.com/isoura4/isrobot-backend/internal/engine"
	"github.com/isoura4/isrobot-backend/internal/models"
)

type stubFlagStore struct {
	mu    sync.Mutex
	flags []*models.AIFlag
}

func (s *stubFlagStore) Insert(f *models.AIFlag) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.flags {
		if existing.MessageID == f.MessageID {
			return false, nil
		}
	}
	cp := *f
	s.flags = append(s.flags, &cp)
	return true, nil
}

func (s *stubFlagStore) GetByID(id uuid.UUID) (*models.AIFlag, error) { return nil, nil }

func (s *stubFlagStore) SetStatus(id uuid.UUID, status, actorID string, at time.Time) (bool, error) {
	return false, nil
}

func (s *stubFlagStore) ListPending(guildID string, limit int) ([]models.AIFlag, error) {
	return nil, nil
}

func (s *stubFlagStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flags)
}

type stubConfigSource struct {
	cfg *models.GuildConfig
}

func (s *stubConfigSource) Get(guildID string) (*models.GuildConfig, error) {
	cp := *s.cfg
	cp.GuildID = guildID
	return &cp, nil
}

func scoringServer(t *testing.T, response string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"response": response})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestWorker(t *testing.T, flags *stubFlagStore, cfg *models.GuildConfig) *Worker {
	t.Helper()
	eng := engine.New(zap.NewNop(), nil, nil, nil, flags, nil, nil, nil, engine.Options{})
	return NewWorker(nil, analysis.NewClient(zap.NewNop(), time.Second), eng, &stubConfigSource{cfg: cfg}, zap.NewNop(), 2)
}

func TestProcessFlagsMessageAboveThreshold(t *testing.T) {
	srv := scoringServer(t, "SCORE: 90\nCATEGORY: toxicity\nREASON: abusive")
	cfg := models.DefaultGuildConfig("g1")
	cfg.OllamaHost = srv.URL

	flags := &stubFlagStore{}
	w := newTestWorker(t, flags, cfg)

	w.Process(context.Background(), models.InboundMessage{
		GuildID: "g1", ChannelID: "c1", MessageID: "m1", UserID: "u1", Content: "terrible things",
	})

	if flags.count() != 1 {
		t.Fatalf("expected 1 flag, got %d", flags.count())
	}
}

func TestProcessSkipsBelowThreshold(t *testing.T) {
	srv := scoringServer(t, "SCORE: 20\nCATEGORY: none\nREASON: fine")
	cfg := models.DefaultGuildConfig("g1")
	cfg.OllamaHost = srv.URL

	flags := &stubFlagStore{}
	w := newTestWorker(t, flags, cfg)

	w.Process(context.Background(), models.InboundMessage{
		GuildID: "g1", ChannelID: "c1", MessageID: "m1", UserID: "u1", Content: "hello",
	})

	if flags.count() != 0 {
		t.Fatalf("expected no flags below threshold, got %d", flags.count())
	}
}

func TestProcessRespectsGuildThreshold(t *testing.T) {
	srv := scoringServer(t, "SCORE: 65\nCATEGORY: spam\nREASON: promo")
	cfg := models.DefaultGuildConfig("g1")
	cfg.OllamaHost = srv.URL
	cfg.AIThreshold = 70

	flags := &stubFlagStore{}
	w := newTestWorker(t, flags, cfg)

	w.Process(context.Background(), models.InboundMessage{
		GuildID: "g1", ChannelID: "c1", MessageID: "m1", UserID: "u1", Content: "buy now",
	})

	if flags.count() != 0 {
		t.Fatalf("score 65 is below the raised threshold 70, got %d flags", flags.count())
	}
}

func TestProcessSkipsBotsAndEmptyMessages(t *testing.T) {
	srv := scoringServer(t, "SCORE: 99\nCATEGORY: toxicity\nREASON: bad")
	cfg := models.DefaultGuildConfig("g1")
	cfg.OllamaHost = srv.URL

	flags := &stubFlagStore{}
	w := newTestWorker(t, flags, cfg)
	ctx := context.Background()

	w.Process(ctx, models.InboundMessage{GuildID: "g1", MessageID: "m1", UserID: "u1", Content: "spam", Bot: true})
	w.Process(ctx, models.InboundMessage{GuildID: "g1", MessageID: "m2", UserID: "u1", Content: "   "})

	if flags.count() != 0 {
		t.Fatalf("bot and empty messages must be skipped, got %d flags", flags.count())
	}
}

func TestProcessSkipsWhenAnalysisDisabled(t *testing.T) {
	cfg := models.DefaultGuildConfig("g1")
	cfg.AIEnabled = false

	flags := &stubFlagStore{}
	w := newTestWorker(t, flags, cfg)

	w.Process(context.Background(), models.InboundMessage{
		GuildID: "g1", MessageID: "m1", UserID: "u1", Content: "anything",
	})

	if flags.count() != 0 {
		t.Fatalf("disabled guild must not be scored, got %d flags", flags.count())
	}
}

func TestProcessIgnoresDuplicateMessages(t *testing.T) {
	srv := scoringServer(t, "SCORE: 90\nCATEGORY: toxicity\nREASON: abusive")
	cfg := models.DefaultGuildConfig("g1")
	cfg.OllamaHost = srv.URL

	flags := &stubFlagStore{}
	w := newTestWorker(t, flags, cfg)
	ctx := context.Background()

	msg := models.InboundMessage{GuildID: "g1", ChannelID: "c1", MessageID: "m1", UserID: "u1", Content: "terrible"}
	w.Process(ctx, msg)
	w.Process(ctx, msg)

	if flags.count() != 1 {
		t.Fatalf("duplicate message must not produce a second flag, got %d", flags.count())
	}
}
