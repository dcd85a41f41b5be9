// Package google adapts the Google Calendar API to the application's
// provider interface. Credential blobs are JSON-encoded oauth2 tokens.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/example/firm-scheduler/internal/application"
)

// Name is the registry key for this adapter.
const Name = "google"

// Events are written to the connected account's primary calendar.
const calendarID = "primary"

// Adapter talks to Google Calendar on behalf of one integration at a time.
// When an oauth2 config is supplied, expired tokens are refreshed
// transparently; without one the token is used as-is.
type Adapter struct {
	oauthConfig *oauth2.Config
}

// New creates an adapter. oauthConfig may be nil.
func New(oauthConfig *oauth2.Config) *Adapter {
	return &Adapter{oauthConfig: oauthConfig}
}

// FetchEvents lists timed events in the window. All-day entries carry no
// clock time and are skipped.
func (a *Adapter) FetchEvents(ctx context.Context, credential []byte, from, to time.Time) ([]application.ProviderEvent, error) {
	service, err := a.service(ctx, credential)
	if err != nil {
		return nil, err
	}

	call := service.Events.List(calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx)

	var out []application.ProviderEvent
	for {
		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list events: %w", err)
		}
		for _, item := range page.Items {
			event, ok := fromGoogleEvent(item)
			if !ok {
				continue
			}
			out = append(out, event)
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		call = call.PageToken(page.NextPageToken)
	}
}

// CreateEvent inserts a new event and returns its remote id.
func (a *Adapter) CreateEvent(ctx context.Context, credential []byte, event application.ProviderEvent) (string, error) {
	service, err := a.service(ctx, credential)
	if err != nil {
		return "", err
	}
	created, err := service.Events.Insert(calendarID, toGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}
	return created.Id, nil
}

// UpdateEvent replaces the remote event body.
func (a *Adapter) UpdateEvent(ctx context.Context, credential []byte, externalID string, event application.ProviderEvent) error {
	service, err := a.service(ctx, credential)
	if err != nil {
		return err
	}
	if _, err := service.Events.Update(calendarID, externalID, toGoogleEvent(event)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to update event %s: %w", externalID, err)
	}
	return nil
}

// DeleteEvent removes the remote event. A copy already gone on the remote
// side counts as deleted.
func (a *Adapter) DeleteEvent(ctx context.Context, credential []byte, externalID string) error {
	service, err := a.service(ctx, credential)
	if err != nil {
		return err
	}
	if err := service.Events.Delete(calendarID, externalID).Context(ctx).Do(); err != nil {
		if isGone(err) {
			return nil
		}
		return fmt.Errorf("failed to delete event %s: %w", externalID, err)
	}
	return nil
}

func (a *Adapter) service(ctx context.Context, credential []byte) (*calendar.Service, error) {
	token := &oauth2.Token{}
	if err := json.Unmarshal(credential, token); err != nil {
		return nil, fmt.Errorf("credential is not a valid oauth2 token: %w", err)
	}

	var source oauth2.TokenSource
	if a.oauthConfig != nil {
		source = a.oauthConfig.TokenSource(ctx, token)
	} else {
		source = oauth2.StaticTokenSource(token)
	}

	service, err := calendar.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}
	return service, nil
}

func toGoogleEvent(event application.ProviderEvent) *calendar.Event {
	return &calendar.Event{
		Summary:  event.Title,
		Location: event.Location,
		Start:    &calendar.EventDateTime{DateTime: event.Start.UTC().Format(time.RFC3339)},
		End:      &calendar.EventDateTime{DateTime: event.End.UTC().Format(time.RFC3339)},
	}
}

func fromGoogleEvent(item *calendar.Event) (application.ProviderEvent, bool) {
	if item == nil || item.Start == nil || item.End == nil {
		return application.ProviderEvent{}, false
	}
	// All-day events have Date set instead of DateTime.
	if item.Start.DateTime == "" || item.End.DateTime == "" {
		return application.ProviderEvent{}, false
	}
	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return application.ProviderEvent{}, false
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return application.ProviderEvent{}, false
	}

	var updated time.Time
	if item.Updated != "" {
		if parsed, err := time.Parse(time.RFC3339, item.Updated); err == nil {
			updated = parsed
		}
	}

	return application.ProviderEvent{
		ExternalID: item.Id,
		Title:      item.Summary,
		Location:   item.Location,
		Start:      start.UTC(),
		End:        end.UTC(),
		Updated:    updated.UTC(),
	}, true
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
}
