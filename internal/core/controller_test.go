package core

import (
	"context"
	"errors"
	"testing"

	"onboarding_flow/internal/nav"
	"onboarding_flow/pkg"
	"onboarding_flow/src/draft"
	"onboarding_flow/src/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenStorage struct {
	*storage.MemoryStorage
}

func (brokenStorage) Set(ctx context.Context, key, value string) error {
	return errors.New("storage disabled")
}

func newController(t *testing.T, s storage.Storage) (*Controller, *nav.History) {
	t.Helper()
	history := nav.NewHistory(nil)
	c, err := NewController(newUserFlow(), draft.NewStore(s), history)
	require.NoError(t, err)
	return c, history
}

func TestNewControllerValidatesFlow(t *testing.T) {
	flow := newUserFlow()
	flow.Steps = nil

	_, err := NewController(flow, draft.NewStore(storage.NewMemoryStorage()), nav.NewHistory(nil))
	assert.ErrorIs(t, err, ErrInvalidFlow)

	_, err = NewController(newUserFlow(), nil, nav.NewHistory(nil))
	assert.Error(t, err)
}

func TestAdvanceRequiresStart(t *testing.T) {
	c, _ := newController(t, storage.NewMemoryStorage())

	_, err := c.Advance(context.Background(), pkg.Record{"fullName": "Jane Doe"})
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestNewUserScenario(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	c, history := newController(t, mem)

	_, err := c.Start(ctx)
	require.NoError(t, err)

	tr, err := c.Advance(ctx, pkg.Record{"fullName": "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, pkg.Record{"fullName": "Jane Doe"}, tr.Draft)
	assert.Equal(t, "contact", tr.To)
	assert.Equal(t, "/onboarding/personal/contact", history.Current())

	tr, err = c.Advance(ctx, pkg.Record{"email": "jane@x.com"})
	require.NoError(t, err)
	assert.Equal(t, pkg.Record{"fullName": "Jane Doe", "email": "jane@x.com"}, tr.Draft)

	require.NoError(t, c.Reset(ctx))
	assert.Empty(t, c.Draft())

	_, err = mem.Get(ctx, "newUserFormData")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	step, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "personal_info", step.ID)
	// reset does not navigate
	assert.Equal(t, "/onboarding/personal/contact", history.Current())
}

func TestFullFlowCollectsUnionOfFields(t *testing.T) {
	ctx := context.Background()
	c, history := newController(t, storage.NewMemoryStorage())
	_, err := c.Start(ctx)
	require.NoError(t, err)

	submissions := []pkg.Record{
		{"fullName": "Jane Doe", "address": map[string]any{"city": "Oslo"}},
		{"email": "jane@x.com", "phone": "+47 555"},
		{"accountType": "credit"},
		{"annualIncome": 72000.0},
	}
	var last Transition
	for _, s := range submissions {
		last, err = c.Advance(ctx, s)
		require.NoError(t, err)
	}

	assert.True(t, last.Complete)
	assert.Equal(t, Complete, last.To)
	assert.Equal(t, "/onboarding/personal/done", history.Current())
	assert.Equal(t, []string{
		"/onboarding/personal/contact",
		"/onboarding/personal/account",
		"/onboarding/personal/credit",
		"/onboarding/personal/done",
	}, history.Visits())

	want := pkg.Record{}
	for _, s := range submissions {
		want = want.Merge(s)
	}
	assert.Equal(t, want, c.Draft())

	_, err = c.Advance(ctx, pkg.Record{})
	assert.ErrorIs(t, err, ErrFlowComplete)
	_, ok := c.Current()
	assert.False(t, ok)

	require.NoError(t, c.Reset(ctx))
	assert.Empty(t, c.Draft())
}

func TestDebitAccountSkipsCreditProfile(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t, storage.NewMemoryStorage())
	_, err := c.Start(ctx)
	require.NoError(t, err)

	_, err = c.Advance(ctx, pkg.Record{"fullName": "Jane Doe"})
	require.NoError(t, err)
	_, err = c.Advance(ctx, pkg.Record{"email": "jane@x.com"})
	require.NoError(t, err)
	tr, err := c.Advance(ctx, pkg.Record{"accountType": "debit"})
	require.NoError(t, err)

	assert.True(t, tr.Complete)
	assert.Equal(t, "account_type", tr.From)
}

func TestValidationFailureBlocksSubmission(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	c, history := newController(t, mem)
	_, err := c.Start(ctx)
	require.NoError(t, err)

	_, err = c.Advance(ctx, pkg.Record{"fullName": ""})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = c.Advance(ctx, pkg.Record{"fullName": "Jane", "email": "jane@x.com"})
	assert.ErrorIs(t, err, ErrValidation)

	step, _ := c.Current()
	assert.Equal(t, "personal_info", step.ID)
	assert.Empty(t, history.Visits())
	assert.Empty(t, mem.Keys(""))
}

func TestPersistenceFailureDoesNotBlockNavigation(t *testing.T) {
	ctx := context.Background()
	c, history := newController(t, brokenStorage{storage.NewMemoryStorage()})
	_, err := c.Start(ctx)
	require.NoError(t, err)

	tr, err := c.Advance(ctx, pkg.Record{"fullName": "Jane Doe"})
	require.NoError(t, err)
	assert.ErrorIs(t, tr.PersistErr, draft.ErrPersistence)
	assert.Equal(t, "/onboarding/personal/contact", history.Current())

	tr, err = c.Advance(ctx, pkg.Record{"email": "jane@x.com"})
	require.NoError(t, err)
	assert.Equal(t, pkg.Record{"fullName": "Jane Doe", "email": "jane@x.com"}, tr.Draft)
}

func TestBackAndCancelKeepDraft(t *testing.T) {
	ctx := context.Background()
	c, history := newController(t, storage.NewMemoryStorage())
	_, err := c.Start(ctx)
	require.NoError(t, err)

	_, err = c.Back(ctx)
	assert.ErrorIs(t, err, ErrNoPrevious)

	_, err = c.Advance(ctx, pkg.Record{"fullName": "Jane Doe"})
	require.NoError(t, err)
	_, err = c.Advance(ctx, pkg.Record{"email": "jane@x.com"})
	require.NoError(t, err)

	tr, err := c.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, "contact", tr.To)
	assert.Equal(t, "/onboarding/personal/contact", history.Current())

	tr, err = c.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, "personal_info", tr.To)

	tr, err = c.Cancel(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/onboarding/personal", tr.Route)
	assert.Equal(t, "/onboarding/personal", history.Current())
	assert.Equal(t, pkg.Record{"fullName": "Jane Doe", "email": "jane@x.com"}, c.Draft())
}

func TestBackUsesDeclaredTarget(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t, storage.NewMemoryStorage())
	_, err := c.Start(ctx)
	require.NoError(t, err)

	_, err = c.Enter(ctx, "credit_profile")
	require.NoError(t, err)

	tr, err := c.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, "account_type", tr.To)
}

func TestEnterUnknownStep(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t, storage.NewMemoryStorage())
	_, err := c.Start(ctx)
	require.NoError(t, err)

	_, err = c.Enter(ctx, "ssn")
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestResumeAfterReload(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()

	first, _ := newController(t, mem)
	_, err := first.Start(ctx)
	require.NoError(t, err)
	_, err = first.Advance(ctx, pkg.Record{"fullName": "Jane Doe"})
	require.NoError(t, err)
	_, err = first.Advance(ctx, pkg.Record{"email": "jane@x.com"})
	require.NoError(t, err)

	// reload: new draft store and controller over the same storage
	second, history := newController(t, mem)
	tr, err := second.Resume(ctx)
	require.NoError(t, err)

	assert.Equal(t, "account_type", tr.To)
	assert.Equal(t, "/onboarding/personal/account", history.Current())

	session, err := second.Session()
	require.NoError(t, err)
	assert.Equal(t, []string{"personal_info", "contact"}, session.History)
	assert.Equal(t, "Jane Doe", session.Draft["fullName"])
}

func TestResumeWithMalformedDraftStartsOver(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStorage()
	require.NoError(t, mem.Set(ctx, "newUserFormData", "{{{"))

	c, history := newController(t, mem)
	tr, err := c.Resume(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, tr.PersistErr, draft.ErrPersistence)
	assert.Equal(t, "personal_info", tr.To)
	assert.Equal(t, "/onboarding/personal/info", history.Current())
	assert.Empty(t, c.Draft())
}

func TestNavigationFailureIsReported(t *testing.T) {
	ctx := context.Background()
	failing := nav.Func(func(ctx context.Context, path string) error {
		return errors.New("router gone")
	})
	c, err := NewController(newUserFlow(), draft.NewStore(storage.NewMemoryStorage()), failing)
	require.NoError(t, err)
	_, err = c.Start(ctx)
	require.NoError(t, err)

	tr, err := c.Advance(ctx, pkg.Record{"fullName": "Jane Doe"})
	assert.ErrorIs(t, err, ErrNavigation)
	// the step was still accepted
	assert.Equal(t, "contact", tr.To)
	assert.Equal(t, "Jane Doe", c.Draft()["fullName"])
}

func TestSwitchingBranchKeepsEarlierAnswers(t *testing.T) {
	ctx := context.Background()
	c, _ := newController(t, storage.NewMemoryStorage())
	_, err := c.Start(ctx)
	require.NoError(t, err)

	for _, s := range []pkg.Record{
		{"fullName": "Jane Doe"},
		{"email": "jane@x.com"},
		{"accountType": "credit"},
		{"annualIncome": 72000.0},
	} {
		_, err = c.Advance(ctx, s)
		require.NoError(t, err)
	}

	// back into the flow and take the other branch
	_, err = c.Enter(ctx, "account_type")
	require.NoError(t, err)
	tr, err := c.Advance(ctx, pkg.Record{"accountType": "debit"})
	require.NoError(t, err)

	assert.True(t, tr.Complete)
	assert.Equal(t, "debit", tr.Draft["accountType"])
	assert.Equal(t, 72000.0, tr.Draft["annualIncome"])
}
