package subscription

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/hlsub/heyloyalty"
)

// DefaultConcurrency bounds the member lookups run in parallel
const DefaultConcurrency = 4

// ListRef names a list that takes part in the status summary
type ListRef struct {
	ID    int
	Label string
	// CategoryField is the multi-choice member field whose selected
	// options are shown as the member's selection
	CategoryField string
}

// StatusItem is the subscription state of one member on one list
type StatusItem struct {
	ListID     int
	Label      string
	Subscribed bool
	Selection  []string
}

// Service handles subscription lookups and updates
type Service struct {
	api         heyloyalty.API
	logger      zerolog.Logger
	concurrency int
}

// Option configures a Service
type Option func(*Service)

// WithConcurrency sets how many lists are queried at once
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService creates a new Service
func NewService(api heyloyalty.API, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		api:         api,
		logger:      logger,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Status returns the subscription state of email on each list, in the order
// the lists were given. Any remote failure aborts the whole summary.
func (s *Service) Status(ctx context.Context, email string, lists []ListRef) ([]StatusItem, error) {
	items := make([]StatusItem, len(lists))
	if len(lists) == 0 {
		return items, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, ref := range lists {
		g.Go(func() error {
			item, err := s.statusFor(ctx, email, ref)
			if err != nil {
				return fmt.Errorf("list %d: %w", ref.ID, err)
			}
			items[i] = item
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return items, nil
}

func (s *Service) statusFor(ctx context.Context, email string, ref ListRef) (StatusItem, error) {
	item := StatusItem{
		ListID: ref.ID,
		Label:  ref.Label,
	}

	// Only fetch the list when it is needed for a label or option names
	var list *heyloyalty.List
	if item.Label == "" || ref.CategoryField != "" {
		var err error
		list, err = s.api.ListByID(ctx, ref.ID)
		if err != nil {
			return item, err
		}
	}

	if item.Label == "" {
		if list != nil {
			item.Label = list.Name
		} else {
			item.Label = fmt.Sprintf("List %d", ref.ID)
		}
	}

	member, err := s.api.FindMember(ctx, ref.ID, email)
	if err != nil {
		return item, err
	}
	if member == nil {
		return item, nil
	}

	item.Subscribed = true
	if ref.CategoryField != "" {
		item.Selection = selectionLabels(list, ref.CategoryField, member.FieldValues(ref.CategoryField))
	}

	s.logger.Debug().
		Int("list_id", ref.ID).
		Str("member_id", member.ID).
		Int("selected", len(item.Selection)).
		Msg("Resolved subscription status")

	return item, nil
}

// selectionLabels maps selected option IDs to their labels. Unknown IDs are
// kept as-is.
func selectionLabels(list *heyloyalty.List, fieldName string, values []string) []string {
	if len(values) == 0 {
		return nil
	}

	var field *heyloyalty.ListField
	if list != nil {
		field = list.Field(fieldName)
	}

	labels := make([]string, 0, len(values))
	for _, v := range values {
		if field != nil {
			labels = append(labels, field.OptionLabel(v))
		} else {
			labels = append(labels, v)
		}
	}
	return labels
}

// Subscribe adds email to the list or updates the existing member's fields
func (s *Service) Subscribe(ctx context.Context, email, name string, listID int, fields heyloyalty.Fields) (*heyloyalty.UpsertResult, error) {
	result, err := s.api.UpsertMember(ctx, email, name, listID, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe %s to list %d: %w", email, listID, err)
	}

	action := "updated"
	if result.Created {
		action = "created"
	}
	s.logger.Info().
		Int("list_id", listID).
		Str("email", email).
		Str("action", action).
		Msg("Subscription saved")

	return result, nil
}
