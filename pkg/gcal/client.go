// Package gcal mirrors due tasks into Google Calendar. Each qualifying
// task owns exactly one event; the local index keeps sync fast and the
// taskrepo_id extended property keeps it correct when the index drifts.
package gcal

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/paxcalpt/taskrepo/pkg/task"
)

// Client talks to one Google calendar.
type Client struct {
	srv        *calendar.Service
	calendarID string
	index      *EventIndex
	colors     *ColorCache
}

// NewClient builds an authenticated client for the given calendar id
// ("primary" for the user's default calendar).
func NewClient(ctx context.Context, paths Paths, calendarID string) (*Client, error) {
	httpClient, err := authedClient(ctx, paths)
	if err != nil {
		return nil, err
	}
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create calendar service: %w", err)
	}
	return &Client{
		srv:        srv,
		calendarID: calendarID,
		index:      OpenIndex(paths.MappingFile()),
		colors:     OpenColors(paths.ColorCacheFile()),
	}, nil
}

// ListCalendars returns "summary (id)" lines for every calendar the
// account can see. Used by calendar-setup to verify the connection.
func (c *Client) ListCalendars() ([]string, error) {
	list, err := c.srv.CalendarList.List().Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list calendars: %w", err)
	}
	var names []string
	for _, item := range list.Items {
		names = append(names, fmt.Sprintf("%s (%s)", item.Summary, item.Id))
	}
	return names, nil
}

// Stats summarizes one sync pass.
type Stats struct {
	Created int
	Updated int
	Deleted int
	Errors  []string
}

// SyncAll mirrors every qualifying task into the calendar and removes
// events whose tasks were deleted, completed, archived, or lost their
// due date. Per-task failures are collected, not fatal.
func (c *Client) SyncAll(tasks []*task.Task) (Stats, error) {
	var stats Stats

	qualifying := map[string]bool{}
	for _, t := range tasks {
		if !Qualifies(t) {
			continue
		}
		qualifying[t.ID] = true
		created, err := c.SyncTask(t)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("task %.8s: %v", t.ID, err))
			continue
		}
		if created {
			stats.Created++
		} else {
			stats.Updated++
		}
	}

	for taskID, eventID := range c.index.All() {
		if qualifying[taskID] {
			continue
		}
		if err := c.DeleteEvent(eventID); err != nil {
			stats.Errors = append(stats.Errors, fmt.Sprintf("delete task %.8s: %v", taskID, err))
			continue
		}
		c.index.Remove(taskID)
		stats.Deleted++
	}

	if err := c.index.Save(); err != nil {
		return stats, fmt.Errorf("failed to save event index: %w", err)
	}
	if err := c.colors.Save(); err != nil {
		log.Printf("warning: failed to save color cache: %v", err)
	}
	return stats, nil
}

// SyncTask creates or updates the event for one task. It reports
// whether a new event was created.
func (c *Client) SyncTask(t *task.Task) (bool, error) {
	target, err := EventForTask(t, c.colors.ColorID(t.Project))
	if err != nil {
		return false, err
	}

	existing := c.findEvent(t.ID)
	if existing != nil {
		patch := EventPatch(existing, target)
		if patch == nil {
			return false, nil
		}
		updated, err := c.srv.Events.Patch(c.calendarID, existing.Id, patch).Do()
		if err != nil {
			return false, fmt.Errorf("failed to patch event: %w", err)
		}
		c.index.Set(t.ID, updated.Id)
		return false, nil
	}

	created, err := c.srv.Events.Insert(c.calendarID, target).Do()
	if err != nil {
		return false, fmt.Errorf("failed to create event: %w", err)
	}
	c.index.Set(t.ID, created.Id)
	return true, nil
}

// findEvent resolves the event for a task, index first, then by the
// extended property.
func (c *Client) findEvent(taskID string) *calendar.Event {
	if eventID := c.index.Get(taskID); eventID != "" {
		if ev, err := c.srv.Events.Get(c.calendarID, eventID).Do(); err == nil {
			return ev
		}
	}
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(taskIDProperty + "=" + taskID).
		Do()
	if err != nil || len(events.Items) == 0 {
		return nil
	}
	return events.Items[0]
}

// DeleteEvent removes an event from the calendar.
func (c *Client) DeleteEvent(eventID string) error {
	return c.srv.Events.Delete(c.calendarID, eventID).Do()
}

// ClearAll deletes every event the index knows about. Used by
// calendar-clear.
func (c *Client) ClearAll() (int, []string) {
	deleted := 0
	var errs []string
	for taskID, eventID := range c.index.All() {
		if err := c.DeleteEvent(eventID); err != nil {
			errs = append(errs, fmt.Sprintf("task %.8s: %v", taskID, err))
			continue
		}
		c.index.Remove(taskID)
		deleted++
	}
	if err := c.index.Save(); err != nil {
		errs = append(errs, fmt.Sprintf("failed to save event index: %v", err))
	}
	return deleted, errs
}
