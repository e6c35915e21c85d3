package disclosure

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository/memory"
	"github.com/jwalitptl/followup-api/internal/service/event"
	apperrors "github.com/jwalitptl/followup-api/pkg/errors"
	"github.com/jwalitptl/followup-api/pkg/logger"
)

func seed(t *testing.T, store *memory.Store, lang model.Language) *model.FollowUp {
	t.Helper()
	ctx := context.Background()

	c := &model.Clinic{Name: "Sunrise", ClinicCode: "0badf00d"}
	c.ID = uuid.New()
	require.NoError(t, store.Clinics().Create(ctx, c))

	f := &model.FollowUp{
		ClinicID:    c.ID,
		PatientName: "Asha",
		Phone:       "98",
		Language:    lang,
		DueDate:     model.NewDate(2025, time.April, 1),
		Status:      model.FollowUpStatusPending,
		PublicToken: "tok-" + uuid.NewString(),
	}
	f.ID = uuid.New()
	require.NoError(t, store.FollowUps().Create(ctx, f))
	return f
}

func newService(store *memory.Store) *Service {
	log := logger.Nop()
	return NewService(store.FollowUps(), store.ViewLogs(), store.Clinics(), event.NewEventService(store.Outbox(), log), nil, log)
}

func TestResolveAppendsOneLogPerCall(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store)
	f := seed(t, store, model.LanguageEnglish)
	ctx := context.Background()

	client := ClientInfo{UserAgent: "curl/8", ForwardedFor: "203.0.113.7, 10.0.0.1", RemoteAddr: "10.0.0.1:5555"}
	for i := 1; i <= 3; i++ {
		got, err := svc.Resolve(ctx, f.PublicToken, client)
		require.NoError(t, err)
		assert.Equal(t, f.ID, got.ID)

		logs, err := store.ViewLogs().ListByFollowUp(ctx, f.ID)
		require.NoError(t, err)
		assert.Len(t, logs, i)
	}

	logs, err := store.ViewLogs().ListByFollowUp(ctx, f.ID)
	require.NoError(t, err)
	require.NotNil(t, logs[0].IPAddress)
	assert.Equal(t, "203.0.113.7", *logs[0].IPAddress)
	require.NotNil(t, logs[0].UserAgent)
	assert.Equal(t, "curl/8", *logs[0].UserAgent)
}

func TestResolveMissLogsNothing(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store)
	f := seed(t, store, model.LanguageEnglish)
	ctx := context.Background()

	for _, token := range []string{"", "nope", f.PublicToken[:10]} {
		_, err := svc.Resolve(ctx, token, ClientInfo{})
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
		assert.Equal(t, "follow-up not found", appErr.Message)
	}

	entries, err := store.ViewLogs().List(ctx, model.ViewLogFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiscloseLocalizesNotice(t *testing.T) {
	store := memory.NewStore()
	svc := newService(store)
	ctx := context.Background()

	hi := seed(t, store, model.LanguageHindi)
	view, err := svc.Disclose(ctx, hi.PublicToken, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, "कृपया अपने फॉलो-अप के लिए हमारे क्लिनिक आएं।", view.Message)
	assert.Equal(t, "Sunrise", view.ClinicName)
	assert.Equal(t, "Asha", view.PatientName)

	en := seed(t, store, model.LanguageEnglish)
	view, err = svc.Disclose(ctx, en.PublicToken, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, "Please visit our clinic for your follow-up.", view.Message)

	assert.Equal(t, Notice(model.LanguageEnglish), Notice("fr"))
	assert.Equal(t, Notice(model.LanguageEnglish), Notice(""))
}

func TestClientAddress(t *testing.T) {
	cases := []struct {
		name   string
		xff    string
		remote string
		want   string
	}{
		{"forwarded first entry", " 198.51.100.2 , 10.0.0.1", "10.0.0.1:80", "198.51.100.2"},
		{"peer with port", "", "192.0.2.10:41234", "192.0.2.10"},
		{"peer without port", "", "192.0.2.11", "192.0.2.11"},
		{"ipv6 peer", "", "[2001:db8::1]:443", "2001:db8::1"},
		{"garbage forwarded falls back", "unknown", "192.0.2.12:1", "192.0.2.12"},
		{"nothing usable", "", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClientAddress(tc.xff, tc.remote)
			if tc.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tc.want, *got)
		})
	}
}
