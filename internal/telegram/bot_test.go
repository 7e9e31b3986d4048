package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ssq-predictor/internal/database"
	"ssq-predictor/internal/predictor"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestAPI 指向本地模拟服务的 BotAPI，返回已发送消息计数
func newTestAPI(t *testing.T) (*tgbotapi.BotAPI, *atomic.Int32) {
	t.Helper()
	sent := &atomic.Int32{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"ssq","username":"ssq_bot"}}`)
			return
		}
		sent.Add(1)
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":5,"type":"private"}}}`)
	}))
	t.Cleanup(server.Close)

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint("test-token", server.URL+"/bot%s/%s")
	require.NoError(t, err)
	return api, sent
}

// blockingService 预测一直阻塞到 ctx 取消
type blockingService struct {
	*fakeService
	once     sync.Once
	started  chan struct{}
	finished atomic.Bool
}

func (s *blockingService) Predict(ctx context.Context, _ predictor.ProgressFunc) (*database.PredictionRun, *predictor.Prediction, error) {
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()
	s.finished.Store(true)
	return nil, nil, ctx.Err()
}

func TestBotStopWaitsForRunningCommands(t *testing.T) {
	api, sent := newTestAPI(t)
	svc := &blockingService{fakeService: &fakeService{}, started: make(chan struct{})}
	bot := newBot(api, NewHandler(&fakeDraws{}, svc, 0))

	updates := make(chan tgbotapi.Update, 1)
	bot.updateChannel = updates
	bot.Start()

	updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     "/predict",
		Chat:     &tgbotapi.Chat{ID: 5, Type: "private"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len("/predict")}},
	}}

	select {
	case <-svc.started:
	case <-time.After(5 * time.Second):
		t.Fatal("predict command was not dispatched")
	}

	bot.Stop()
	assert.True(t, svc.finished.Load())
	// 进度提示 + 失败回复
	assert.Equal(t, int32(2), sent.Load())
}

func TestBotIgnoresGroupMessages(t *testing.T) {
	api, sent := newTestAPI(t)
	bot := newBot(api, NewHandler(&fakeDraws{}, &fakeService{}, 0))

	updates := make(chan tgbotapi.Update, 1)
	bot.updateChannel = updates
	bot.Start()

	updates <- tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     "/help",
		Chat:     &tgbotapi.Chat{ID: -100, Type: "group"},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len("/help")}},
	}}
	close(updates)

	bot.Stop()
	assert.Zero(t, sent.Load())
}
