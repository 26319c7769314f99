package resource

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afyamkononi/afyadmin/internal/api"
	"github.com/afyamkononi/afyadmin/internal/errors"
	"github.com/afyamkononi/afyadmin/internal/log"
	"github.com/afyamkononi/afyadmin/internal/modal"
	"github.com/afyamkononi/afyadmin/internal/nav"
	"github.com/afyamkononi/afyadmin/internal/notify"
	"github.com/afyamkononi/afyadmin/internal/sandbox"
	"github.com/afyamkononi/afyadmin/internal/session"
)

func descriptions(ns []notify.Notification) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Description
	}
	return out
}

func TestController_Load(t *testing.T) {
	e := newEnv(t)
	c := e.controller(t, "doctors")

	require.NoError(t, c.Load(context.Background()))

	st := c.State()
	assert.Len(t, st.Items, 3)
	assert.False(t, st.Loading)
	assert.Nil(t, st.Err())
	assert.Zero(t, e.notes.Pending(), "a successful load is silent")

	rec, ok := c.Find(2)
	require.True(t, ok)
	assert.Equal(t, "Otieno Odhiambo", rec.Text("full_name"))
}

func TestController_LoadFailureKeepsItems(t *testing.T) {
	e := newEnv(t)
	c := e.controller(t, "doctors")
	require.NoError(t, c.Load(context.Background()))

	e.sandbox.FailNext(http.MethodGet, "/doctors", http.StatusInternalServerError)
	err := c.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, api.StatusCode(err))

	st := c.State()
	assert.Len(t, st.Items, 3, "previous items survive a failed load")
	assert.False(t, st.Loading)
	require.NotNil(t, st.LoadErr)
	assert.Equal(t, "Failed to fetch doctors", st.LoadErr.Message)

	notes := e.notes.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.Error, notes[0].Severity)
	assert.Equal(t, "Failed to fetch doctors", notes[0].Description)

	require.NoError(t, c.Load(context.Background()))
	assert.Nil(t, c.State().LoadErr)
}

func TestController_RemoveConfirmed(t *testing.T) {
	e := newEnv(t)
	c := e.controller(t, "doctors")
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	var asked string
	confirm := ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		asked = prompt
		return true, nil
	})
	require.NoError(t, c.Remove(ctx, 2, confirm))

	assert.Equal(t, "Are you sure you want to delete this doctor?", asked)
	assert.Equal(t, 1, e.sandbox.Requests(http.MethodDelete, "/doctors/2"))
	assert.Equal(t, 2, e.sandbox.Requests(http.MethodGet, "/doctors"), "a delete refetches the list")

	items := c.Items()
	require.Len(t, items, 2)
	for _, item := range items {
		id, _ := item.ID()
		assert.NotEqual(t, int64(2), id)
	}
	assert.Equal(t, []string{"Doctor deleted successfully"}, descriptions(e.notes.Drain()))
}

func TestController_RemoveWithoutConfirmation(t *testing.T) {
	e := newEnv(t)
	c := e.controller(t, "doctors")
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	declined := ConfirmFunc(func(context.Context, string) (bool, error) { return false, nil })
	broken := ConfirmFunc(func(context.Context, string) (bool, error) { return false, assert.AnError })

	for name, confirm := range map[string]Confirmer{"nil": nil, "declined": declined, "failed": broken} {
		t.Run(name, func(t *testing.T) {
			err := c.Remove(ctx, 2, confirm)
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeResourceNotConfirmed, errors.CodeOf(err))
		})
	}

	assert.Zero(t, e.sandbox.Requests(http.MethodDelete, "/doctors/2"))
	assert.Len(t, c.Items(), 3)
	assert.Zero(t, e.notes.Pending())
}

func TestController_CreateRefetchesBeforeClosing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	var (
		c         *Controller
		gets      atomic.Int32
		modeOnGet []modal.Mode
	)
	spy := &spyClient{Client: e.client, beforeGet: func(string) {
		gets.Add(1)
		modeOnGet = append(modeOnGet, c.Modal().Mode())
	}}
	c = NewController(e.registry.MustLookup("doctors"), e.options(spy))
	require.NoError(t, c.Load(ctx))

	require.NoError(t, c.OpenAdd())
	var submitErr error
	m := c.Overlay(ctx, func(err error) { submitErr = err })
	for field, value := range map[string]string{
		"first_name": "Njoki", "last_name": "Wambui", "email": "njoki@afya.test",
		"phone_number": "+254700000009", "gender": "female",
		"specialization": "Neurology", "about": "Neurologist",
	} {
		require.NoError(t, m.Draft().Set(field, value))
	}
	require.NoError(t, m.Submit())
	require.NoError(t, submitErr)

	assert.Equal(t, int32(2), gets.Load())
	assert.Equal(t, []modal.Mode{modal.None, modal.Add}, modeOnGet, "the add overlay is still open during the refetch")
	assert.Equal(t, modal.None, c.Modal().Mode())
	assert.Len(t, c.Items(), 4)
	assert.Equal(t, 4, e.sandbox.Count("doctors"))

	added, ok := c.Find(4)
	require.True(t, ok)
	assert.Equal(t, "Doctor", added.Text("role"))
	assert.Equal(t, "12345678", added.Text("password"))
	assert.Equal(t, []string{"Doctor added successfully"}, descriptions(e.notes.Drain()))
}

func TestController_CreateFailureKeepsOverlay(t *testing.T) {
	e := newEnv(t)
	c := e.controller(t, "patients")
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))
	require.NoError(t, c.OpenAdd())

	e.sandbox.FailNext(http.MethodPost, "/patients", http.StatusUnprocessableEntity)
	err := c.Create(ctx, Record{"first_name": "X"})
	require.Error(t, err)

	st := c.State()
	assert.Equal(t, modal.Add, st.Modal.Mode())
	require.NotNil(t, st.MutationErr)
	assert.Equal(t, "Failed to add patient", st.MutationErr.Message)
	assert.Nil(t, st.LoadErr)
	assert.Equal(t, 1, e.sandbox.Requests(http.MethodGet, "/patients"), "no refetch after a failed mutation")

	notes := e.notes.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.Error, notes[0].Severity)
	assert.Equal(t, "Failed to add patient", notes[0].Description)
}

func TestController_EditThroughOverlay(t *testing.T) {
	e := newEnv(t)
	c := e.controller(t, "doctors")
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	require.NoError(t, c.OpenEdit(1))
	m := c.Overlay(ctx, nil)
	assert.Equal(t, "Wanjiru", m.Draft().Get("first_name"))
	require.NoError(t, m.Draft().Set("specialization", "Oncology"))
	require.NoError(t, m.Submit())

	assert.Equal(t, modal.None, c.Modal().Mode())
	rec, ok := c.Find(1)
	require.True(t, ok)
	assert.Equal(t, "Oncology", rec.Text("specialization"))
	assert.Equal(t, "Wanjiru", rec.Text("first_name"))
	assert.Equal(t, []string{"Doctor updated successfully"}, descriptions(e.notes.Drain()))
}

func TestController_EditKeepsValuesOutsideOptions(t *testing.T) {
	e := newEnv(t)
	c := e.controller(t, "doctors")
	ctx := context.Background()
	require.NoError(t, e.client.Put(ctx, "/doctors/1", map[string]any{"gender": "Male"}, nil))
	require.NoError(t, c.Load(ctx))

	require.NoError(t, c.OpenEdit(1))
	var submitErr error
	m := c.Overlay(ctx, func(err error) { submitErr = err })
	require.NoError(t, m.Draft().Set("specialization", "Oncology"))
	require.NoError(t, m.Submit())
	require.NoError(t, submitErr)

	assert.Equal(t, 2, e.sandbox.Requests(http.MethodPut, "/doctors/1"), "the edit reached the backend")
	rec, ok := c.Find(1)
	require.True(t, ok)
	assert.Equal(t, "Male", rec.Text("gender"))
	assert.Equal(t, "Oncology", rec.Text("specialization"))
}

func TestController_EditStaysOpenWhenReloadFails(t *testing.T) {
	e := newEnv(t)
	c := e.controller(t, "doctors")
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	require.NoError(t, c.OpenEdit(1))
	var submitErr error
	m := c.Overlay(ctx, func(err error) { submitErr = err })
	require.NoError(t, m.Draft().Set("specialization", "Oncology"))

	e.sandbox.FailNext(http.MethodGet, "/doctors", http.StatusBadGateway)
	require.NoError(t, m.Submit())

	require.Error(t, submitErr)
	assert.ErrorIs(t, submitErr, ErrStale)
	assert.Equal(t, errors.ErrCodeResourceStale, errors.CodeOf(submitErr))

	st := c.State()
	assert.Equal(t, modal.Edit, st.Modal.Mode(), "the overlay never closes over a stale list")
	require.NotNil(t, st.LoadErr)
	assert.Nil(t, st.MutationErr, "the update itself succeeded")
	rec, _ := c.Find(1)
	assert.Equal(t, "Cardiology", rec.Text("specialization"), "items still hold the last successful read")

	assert.Equal(t, []string{"Doctor updated successfully", "Failed to fetch doctors"}, descriptions(e.notes.Drain()))

	require.NoError(t, c.Load(ctx))
	rec, _ = c.Find(1)
	assert.Equal(t, "Oncology", rec.Text("specialization"))
}

func TestController_RemoveFailureKeepsItems(t *testing.T) {
	e := newEnv(t)
	c := e.controller(t, "doctors")
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))
	before := c.Items()

	e.sandbox.FailNext(http.MethodDelete, "/doctors/2", http.StatusInternalServerError)
	err := c.Remove(ctx, 2, Confirmed)
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, api.StatusCode(err))

	st := c.State()
	assert.Equal(t, before, st.Items)
	require.NotNil(t, st.MutationErr)
	assert.Equal(t, "Failed to delete doctor", st.MutationErr.Message)
	assert.Nil(t, st.LoadErr)
	assert.Equal(t, 1, e.sandbox.Requests(http.MethodGet, "/doctors"), "no refetch after a failed delete")
	assert.Equal(t, 3, e.sandbox.Count("doctors"))

	notes := e.notes.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.Error, notes[0].Severity)
	assert.Equal(t, "Failed to delete doctor", notes[0].Description)
}

func TestController_LoadAndMutationErrorsAreIndependent(t *testing.T) {
	ctx := context.Background()

	t.Run("load then create", func(t *testing.T) {
		e := newEnv(t)
		c := e.controller(t, "patients")

		e.sandbox.FailNext(http.MethodGet, "/patients", http.StatusInternalServerError)
		require.Error(t, c.Load(ctx))
		e.sandbox.FailNext(http.MethodPost, "/patients", http.StatusUnprocessableEntity)
		require.Error(t, c.Create(ctx, Record{"first_name": "X"}))

		st := c.State()
		require.NotNil(t, st.LoadErr)
		assert.Equal(t, "Failed to fetch patients", st.LoadErr.Message)
		require.NotNil(t, st.MutationErr)
		assert.Equal(t, "Failed to add patient", st.MutationErr.Message)
		assert.Len(t, e.notes.Drain(), 2)
	})

	t.Run("create then load", func(t *testing.T) {
		e := newEnv(t)
		c := e.controller(t, "patients")
		require.NoError(t, c.Load(ctx))

		e.sandbox.FailNext(http.MethodPost, "/patients", http.StatusUnprocessableEntity)
		require.Error(t, c.Create(ctx, Record{"first_name": "X"}))
		e.sandbox.FailNext(http.MethodGet, "/patients", http.StatusInternalServerError)
		require.Error(t, c.Load(ctx))

		st := c.State()
		require.NotNil(t, st.MutationErr)
		assert.Equal(t, "Failed to add patient", st.MutationErr.Message)
		require.NotNil(t, st.LoadErr)
		assert.Equal(t, "Failed to fetch patients", st.LoadErr.Message)
		assert.Len(t, st.Items, 2, "the failed load keeps the earlier items")
	})
}

func TestController_ViewAndEditNeedLoadedRecord(t *testing.T) {
	e := newEnv(t)
	c := e.controller(t, "doctors")

	err := c.OpenView(1)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.OpenView(1))
	subject, ok := c.Modal().Subject()
	require.True(t, ok)
	assert.Equal(t, "Wanjiru", subject["first_name"])

	c.CloseModal()
	assert.False(t, c.Modal().Open())
}

func TestController_UnsupportedOperationsSendNothing(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	feedback := e.controller(t, "feedback")
	assert.ErrorIs(t, feedback.Create(ctx, Record{"comment": "x"}), ErrUnsupported)
	assert.ErrorIs(t, feedback.Remove(ctx, 1, Confirmed), ErrUnsupported)
	assert.ErrorIs(t, feedback.OpenAdd(), ErrUnsupported)
	assert.Zero(t, e.sandbox.Requests(http.MethodPost, "/feedbacks"))
	assert.Zero(t, e.sandbox.Requests(http.MethodDelete, "/feedbacks/1"))

	reports := e.controller(t, "reports")
	err := reports.Update(ctx, 1, Record{"diagnosis": "x"})
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, errors.ErrCodeResourceUnsupported, errors.CodeOf(err))
	assert.ErrorIs(t, reports.MarkReplied(ctx, 1), ErrUnsupported)
	assert.Zero(t, e.notes.Pending())
}

func TestController_SearchAndFilter(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	doctors := e.controller(t, "doctors")
	require.NoError(t, doctors.Load(ctx))
	requests := e.sandbox.Requests(http.MethodGet, "/doctors")

	doctors.Search("AMINA")
	require.Len(t, doctors.Visible(), 1)
	assert.Equal(t, "Amina", doctors.Visible()[0].Text("first_name"))

	doctors.Search("")
	assert.Len(t, doctors.Visible(), 3)
	assert.Equal(t, requests, e.sandbox.Requests(http.MethodGet, "/doctors"), "search never hits the backend")

	err := doctors.SetFilter("completed")
	assert.ErrorIs(t, err, ErrUnsupported)

	appts := e.controller(t, "appointments")
	require.NoError(t, appts.Load(ctx))
	require.NoError(t, appts.SetFilter("completed"))
	require.Len(t, appts.Visible(), 1)
	assert.Equal(t, "completed", appts.State().ActiveFilter)

	err = appts.SetFilter("postponed")
	assert.Equal(t, errors.ErrCodeFormInvalid, errors.CodeOf(err))
	assert.Equal(t, "completed", appts.State().ActiveFilter)

	require.NoError(t, appts.SetFilter(""))
	assert.Len(t, appts.Visible(), 2)
}

func TestController_ContactMarkReplied(t *testing.T) {
	e := newEnv(t)
	c := e.controller(t, "contact")
	ctx := context.Background()
	require.NoError(t, c.Load(ctx))

	require.NoError(t, c.SetFilter("unreplied"))
	require.Len(t, c.Visible(), 1)

	require.NoError(t, c.MarkReplied(ctx, 1))
	assert.Empty(t, c.Visible())
	assert.Equal(t, 1, e.sandbox.Requests(http.MethodPut, "/contact/1"))
	assert.Equal(t, []string{"Contact message updated successfully"}, descriptions(e.notes.Drain()))
}

func TestController_CloseDropsLateLoad(t *testing.T) {
	notes := notify.NewChannel(0)
	client := newBlockingClient(`[{"id":1}]`)
	reg := NewRegistry(RegistryOptions{})
	c := NewController(reg.MustLookup("doctors"), Options{Client: client, Notifier: notes, Logger: log.Discard()})

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background()) }()
	<-client.started

	assert.True(t, c.State().Loading)
	c.Close()
	close(client.release)

	assert.ErrorIs(t, <-done, ErrDetached)
	assert.Empty(t, c.Items())
	assert.False(t, c.State().Loading)
	assert.Zero(t, notes.Pending())
	assert.ErrorIs(t, c.Load(context.Background()), ErrDetached)
}

func TestController_CloseDropsLateMutation(t *testing.T) {
	notes := notify.NewChannel(0)
	client := newBlockingClient(`[]`)
	client.err = assert.AnError
	reg := NewRegistry(RegistryOptions{})
	c := NewController(reg.MustLookup("patients"), Options{Client: client, Notifier: notes, Logger: log.Discard()})

	done := make(chan error, 1)
	go func() { done <- c.Create(context.Background(), Record{"first_name": "X"}) }()
	<-client.started
	c.Close()
	close(client.release)

	assert.ErrorIs(t, <-done, ErrDetached)
	assert.Nil(t, c.State().MutationErr)
	assert.Zero(t, notes.Pending())
}

func TestController_UnauthorizedLoadForcesLogout(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.client.SetToken("")

	navigator := nav.NewNavigator(nav.RouteLogin)
	store := session.NewStore(session.Options{Backend: e.client, Navigator: navigator, Logger: log.Discard()})
	ok, err := store.Login(ctx, sandbox.DefaultAdminEmail, sandbox.DefaultAdminPassword)
	require.NoError(t, err)
	require.True(t, ok)
	navigator.Push(nav.RouteDoctors)

	c := e.controller(t, "doctors")
	require.NoError(t, c.Load(ctx))

	e.sandbox.RevokeTokens()
	err = c.Load(ctx)
	require.ErrorIs(t, err, api.ErrUnauthorized)

	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, e.client.Token())
	assert.Equal(t, nav.RouteLogin, navigator.Current())
	assert.Equal(t, 1, navigator.Redirects())
	assert.Len(t, c.Items(), 3)
	assert.Equal(t, []string{"Failed to fetch doctors"}, descriptions(e.notes.Drain()))
}
