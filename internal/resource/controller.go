// Package resource keeps lists of backend entities in sync with the server
// and mediates every change made to them.
//
// A Controller never patches its items after a mutation: the only way the
// list changes is a full reload, and a mutation's modal closes only after
// that reload has happened.
package resource

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/afyamkononi/afyadmin/internal/api"
	"github.com/afyamkononi/afyadmin/internal/errors"
	"github.com/afyamkononi/afyadmin/internal/log"
	"github.com/afyamkononi/afyadmin/internal/metrics"
	"github.com/afyamkononi/afyadmin/internal/modal"
	"github.com/afyamkononi/afyadmin/internal/notify"
	"github.com/afyamkononi/afyadmin/internal/telemetry"
)

// Sentinel errors, matched with errors.Is.
var (
	ErrUnsupported  = stderrors.New("operation not supported for this entity")
	ErrNotConfirmed = stderrors.New("deletion not confirmed")
	ErrNotFound     = stderrors.New("record not loaded")
	ErrDetached     = stderrors.New("controller closed")
	ErrStale        = stderrors.New("list not refreshed")
)

// Client is the subset of the API client a controller uses.
type Client interface {
	Get(ctx context.Context, path string, out any, opts ...api.RequestOption) error
	Post(ctx context.Context, path string, body, out any, opts ...api.RequestOption) error
	Put(ctx context.Context, path string, body, out any, opts ...api.RequestOption) error
	Delete(ctx context.Context, path string, out any, opts ...api.RequestOption) error
}

// ErrorInfo describes the last failure of one concern.
type ErrorInfo struct {
	Op      string
	Message string
	Err     error
	At      time.Time
}

func (e *ErrorInfo) Error() string {
	return e.Message
}

// ListState is a snapshot of a controller.
type ListState struct {
	Items        []Record
	Loading      bool
	LoadErr      *ErrorInfo
	MutationErr  *ErrorInfo
	SearchQuery  string
	ActiveFilter string
	Modal        modal.State
}

// Err returns the load error, else the mutation error.
func (s ListState) Err() *ErrorInfo {
	if s.LoadErr != nil {
		return s.LoadErr
	}
	return s.MutationErr
}

// Options wires a controller to its collaborators.
type Options struct {
	Client   Client
	Notifier notify.Notifier
	Logger   *log.Logger
	Metrics  *metrics.Metrics
}

// Controller synchronises one kind's list with the backend.
type Controller struct {
	kind     *Kind
	client   Client
	notifier notify.Notifier
	logger   *log.Logger
	metrics  *metrics.Metrics

	mu          sync.Mutex
	items       []Record
	loading     bool
	loadSeq     uint64
	loadErr     *ErrorInfo
	mutationErr *ErrorInfo
	query       string
	filter      string
	overlay     modal.State
	closed      bool
}

// NewController creates an empty controller for kind.
func NewController(kind *Kind, opts Options) *Controller {
	n := opts.Notifier
	if n == nil {
		n = notify.Discard{}
	}
	return &Controller{
		kind:     kind,
		client:   opts.Client,
		notifier: n,
		logger:   log.OrDefault(opts.Logger).With("component", "resource", "resource", kind.Name),
		metrics:  opts.Metrics,
		items:    []Record{},
		filter:   FilterAll,
	}
}

// Kind returns the controlled kind.
func (c *Controller) Kind() *Kind {
	return c.kind
}

// State returns a snapshot. Items is a copy.
func (c *Controller) State() ListState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ListState{
		Items:        append([]Record(nil), c.items...),
		Loading:      c.loading,
		LoadErr:      c.loadErr,
		MutationErr:  c.mutationErr,
		SearchQuery:  c.query,
		ActiveFilter: c.filter,
		Modal:        c.overlay,
	}
}

// Items returns the last loaded items in server order.
func (c *Controller) Items() []Record {
	return c.State().Items
}

// Visible returns the items narrowed by the current search and filter.
func (c *Controller) Visible() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Narrow(c.kind, c.items, c.query, c.filter)
}

// Find returns the loaded record with id.
func (c *Controller) Find(id int64) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range c.items {
		if got, ok := item.ID(); ok && got == id {
			return item.Clone(), true
		}
	}
	return nil, false
}

// Load replaces the items with a fresh server read. On failure the items are
// kept, LoadErr is set and one error notification is sent. Loading is
// cleared however the request ends. When loads overlap the last one started
// wins.
func (c *Controller) Load(ctx context.Context) (err error) {
	if err := c.kind.require(CanList); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrDetached
	}
	c.loadSeq++
	seq := c.loadSeq
	c.loading = true
	c.mu.Unlock()

	ctx, span := telemetry.StartOperationSpan(ctx, c.kind.Name, "load")
	defer span.End()

	var items []Record
	defer func() {
		c.mu.Lock()
		if c.closed || seq != c.loadSeq {
			c.mu.Unlock()
			if c.isClosed() {
				err = ErrDetached
			}
			return
		}
		c.loading = false
		if err != nil {
			c.loadErr = &ErrorInfo{Op: "load", Message: "Failed to fetch " + c.kind.Noun, Err: err, At: time.Now()}
		} else {
			c.items = items
			c.loadErr = nil
		}
		c.mu.Unlock()

		c.metrics.ObserveLoad(c.kind.Name, err == nil)
		if err != nil {
			telemetry.RecordError(span, err)
			c.logger.WithContext(ctx).WithError(err).Warn("load failed")
			c.notifier.Notify(notify.Notification{
				Title:       "Error",
				Description: "Failed to fetch " + c.kind.Noun,
				Severity:    notify.Error,
			})
			return
		}
		telemetry.RecordSuccess(span)
		c.logger.WithContext(ctx).Debug("loaded", "count", len(items))
	}()

	var raw json.RawMessage
	if err := c.client.Get(ctx, c.kind.Path, &raw); err != nil {
		return err
	}
	items, err = decodeList(raw, c.kind.Envelope)
	return err
}

// Create posts a new record. On success it notifies, reloads and then closes
// the add overlay. On failure the overlay stays open so the operator's input
// is kept. When the post succeeds but the reload fails the overlay also stays
// open and the returned error wraps ErrStale.
func (c *Controller) Create(ctx context.Context, draft Record) error {
	if err := c.kind.require(CanCreate); err != nil {
		return err
	}
	return c.mutate(ctx, "create", modal.Add, func(ctx context.Context) error {
		return c.client.Post(ctx, c.kind.Path, draft, nil)
	}, "added", "add")
}

// Update puts changes to the record with id. Same contract as Create, closing
// the edit overlay.
func (c *Controller) Update(ctx context.Context, id int64, changes Record) error {
	if err := c.kind.require(CanUpdate); err != nil {
		return err
	}
	return c.mutate(ctx, "update", modal.Edit, func(ctx context.Context) error {
		return c.client.Put(ctx, c.kind.ItemPath(id), changes, nil)
	}, "updated", "update")
}

// MarkReplied sets a contact message's status to replied.
func (c *Controller) MarkReplied(ctx context.Context, id int64) error {
	if c.kind.FilterField != "status" || !contains(c.kind.Filters, "replied") {
		return c.unsupported("marked as replied")
	}
	return c.Update(ctx, id, Record{"status": "replied"})
}

// Remove deletes the record with id once confirm agrees. Nothing is sent when
// confirmation is missing, declined or fails.
func (c *Controller) Remove(ctx context.Context, id int64, confirm Confirmer) error {
	if err := c.kind.require(CanDelete); err != nil {
		return err
	}
	if confirm == nil {
		return errors.Wrap(errors.ErrCodeResourceNotConfirmed, "deletion needs confirmation", ErrNotConfirmed)
	}
	ok, err := confirm.Confirm(ctx, c.kind.ConfirmPrompt())
	if err != nil {
		return errors.Wrap(errors.ErrCodeResourceNotConfirmed, "confirmation failed", err)
	}
	if !ok {
		c.logger.Debug("deletion declined", "id", id)
		return errors.Wrap(errors.ErrCodeResourceNotConfirmed, "deletion cancelled", ErrNotConfirmed)
	}
	return c.mutate(ctx, "delete", modal.None, func(ctx context.Context) error {
		return c.client.Delete(ctx, c.kind.ItemPath(id), nil)
	}, "deleted", "delete")
}

func (c *Controller) mutate(ctx context.Context, op string, closes modal.Mode, call func(context.Context) error, done, verb string) error {
	if c.isClosed() {
		return ErrDetached
	}

	ctx, span := telemetry.StartOperationSpan(ctx, c.kind.Name, op)
	defer span.End()

	err := call(ctx)
	if c.isClosed() {
		c.logger.Debug("dropping late result", "op", op)
		return ErrDetached
	}
	c.metrics.ObserveMutation(c.kind.Name, op, err == nil)

	if err != nil {
		telemetry.RecordError(span, err)
		c.logger.WithContext(ctx).WithError(err).Warn(op + " failed")
		msg := fmt.Sprintf("Failed to %s %s", verb, c.kind.Singular)
		c.mu.Lock()
		c.mutationErr = &ErrorInfo{Op: op, Message: msg, Err: err, At: time.Now()}
		c.mu.Unlock()
		c.notifier.Notify(notify.Notification{Title: "Error", Description: msg, Severity: notify.Error})
		return err
	}

	telemetry.RecordSuccess(span)
	c.mu.Lock()
	c.mutationErr = nil
	c.mu.Unlock()
	c.notifier.Notify(notify.Notification{
		Title:       "Success",
		Description: fmt.Sprintf("%s %s successfully", capitalize(c.kind.Singular), done),
		Severity:    notify.Info,
	})

	// The overlay only closes over a fresh list. A failed reload is reported
	// by Load; the change itself is saved.
	if err := c.Load(ctx); err != nil {
		if stderrors.Is(err, ErrDetached) {
			return ErrDetached
		}
		return errors.Wrap(errors.ErrCodeResourceStale,
			fmt.Sprintf("%s %s, but the list could not be refreshed", c.kind.Singular, done),
			stderrors.Join(ErrStale, err)).
			WithSuggestion("Close the form and reload the list before submitting again")
	}

	if closes != modal.None {
		c.mu.Lock()
		if c.overlay.Mode() == closes {
			c.overlay = modal.Closed()
		}
		c.mu.Unlock()
	}
	return nil
}

// Search narrows the visible items. It never queries the backend.
func (c *Controller) Search(query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = query
}

// SetFilter narrows the visible items by the kind's filter field. "" means
// FilterAll.
func (c *Controller) SetFilter(criterion string) error {
	if criterion == "" {
		criterion = FilterAll
	}
	if criterion != FilterAll && !contains(c.kind.Filters, criterion) {
		if len(c.kind.Filters) == 0 {
			return c.unsupported("filtered")
		}
		return errors.New(errors.ErrCodeFormInvalid, fmt.Sprintf("unknown filter %q", criterion)).
			WithSuggestion("Use one of: " + strings.Join(c.kind.Filters, ", "))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = criterion
	return nil
}

// Modal returns the overlay state.
func (c *Controller) Modal() modal.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overlay
}

// OpenView shows the loaded record with id.
func (c *Controller) OpenView(id int64) error {
	return c.openWith(id, modal.Viewing)
}

// OpenEdit opens the loaded record with id for changes.
func (c *Controller) OpenEdit(id int64) error {
	if err := c.kind.require(CanUpdate); err != nil {
		return err
	}
	return c.openWith(id, modal.Editing)
}

// OpenAdd opens an empty add form.
func (c *Controller) OpenAdd() error {
	if err := c.kind.require(CanCreate); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlay = modal.Adding()
	return nil
}

// CloseModal dismisses any overlay.
func (c *Controller) CloseModal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlay = modal.Closed()
}

// Overlay opens a modal for the current overlay state whose submit runs
// Create or Update and whose close dismisses the overlay. Errors from the
// submit are passed to onResult.
func (c *Controller) Overlay(ctx context.Context, onResult func(error)) *modal.Modal {
	state := c.Modal()
	return modal.Open(state, c.kind.Schema, modal.Callbacks{
		OnClose: c.CloseModal,
		OnSubmit: func(payload map[string]any) {
			var err error
			switch state.Mode() {
			case modal.Add:
				err = c.Create(ctx, payload)
			case modal.Edit:
				subject, _ := state.Subject()
				id, ok := Record(subject).ID()
				if !ok {
					err = errors.New(errors.ErrCodeResourceInvalidRecord, "record has no id")
					break
				}
				err = c.Update(ctx, id, payload)
			}
			if onResult != nil {
				onResult(err)
			}
		},
	})
}

// Close detaches the controller. Responses arriving afterwards change no
// state and send no notifications.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.loading = false
}

func (c *Controller) openWith(id int64, open func(map[string]any) modal.State) error {
	rec, ok := c.Find(id)
	if !ok {
		return errors.Wrap(errors.ErrCodeResourceNotFound,
			fmt.Sprintf("no %s with id %d is loaded", c.kind.Singular, id), ErrNotFound)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.overlay = open(rec)
	return nil
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) unsupported(what string) error {
	return errors.Wrap(errors.ErrCodeResourceUnsupported,
		fmt.Sprintf("%s cannot be %s from the console", c.kind.Noun, what), ErrUnsupported)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
