package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dkotenko/taskflow/internal/task"
	"github.com/dkotenko/taskflow/pkg/cerr"
)

const (
	trelloIDPrefix = "trello-"
	trelloTagLen   = 8

	// Cards touched within this window count as in progress.
	trelloActivityWindow = 48 * time.Hour
)

type TrelloImporter struct {
	apiKey  string
	token   string
	boardID string
	listIDs map[string]struct{}
	baseURL string
	hc      *http.Client
	now     func() time.Time
}

func NewTrelloImporter(apiKey, token, boardID string, listIDs []string, baseURL string) *TrelloImporter {
	ids := make(map[string]struct{}, len(listIDs))
	for _, id := range listIDs {
		ids[id] = struct{}{}
	}
	return &TrelloImporter{
		apiKey:  apiKey,
		token:   token,
		boardID: boardID,
		listIDs: ids,
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
	}
}

func (i *TrelloImporter) Name() string { return "trello" }

type trelloLabel struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type trelloCheckItem struct {
	Name  string `json:"name"`
	State string `json:"state"`
}

type trelloChecklist struct {
	CheckItems []trelloCheckItem `json:"checkItems"`
}

type trelloCard struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Desc             string            `json:"desc"`
	IDList           string            `json:"idList"`
	Closed           bool              `json:"closed"`
	Due              *time.Time        `json:"due"`
	DueComplete      bool              `json:"dueComplete"`
	DateLastActivity *time.Time        `json:"dateLastActivity"`
	Labels           []trelloLabel     `json:"labels"`
	Checklists       []trelloChecklist `json:"checklists"`
}

type trelloList struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Import fetches open cards (board cards when a board is configured, the
// member's cards otherwise) and maps them to tasks.
func (i *TrelloImporter) Import(ctx context.Context) ([]*task.Task, error) {
	if i.apiKey == "" || i.token == "" {
		return nil, cerr.NewError(cerr.FailedPrecondition, "trello credentials are not configured", nil)
	}

	listNames := make(map[string]string)
	cardsPath := "/members/me/cards"
	if i.boardID != "" {
		cardsPath = fmt.Sprintf("/boards/%s/cards", i.boardID)
		var lists []trelloList
		if err := i.get(ctx, fmt.Sprintf("/boards/%s/lists", i.boardID), url.Values{"fields": {"name"}}, &lists); err != nil {
			return nil, err
		}
		for _, l := range lists {
			listNames[l.ID] = l.Name
		}
	}

	var cards []trelloCard
	params := url.Values{"filter": {"open"}, "checklists": {"all"}}
	if err := i.get(ctx, cardsPath, params, &cards); err != nil {
		return nil, err
	}

	var tasks []*task.Task
	for _, card := range cards {
		if len(i.listIDs) > 0 {
			if _, ok := i.listIDs[card.IDList]; !ok {
				continue
			}
		}
		tasks = append(tasks, i.mapCard(card, listNames[card.IDList]))
	}
	return tasks, nil
}

func (i *TrelloImporter) mapCard(card trelloCard, listName string) *task.Task {
	t := &task.Task{
		ID:          trelloIDPrefix + card.ID,
		Title:       card.Name,
		Description: card.Desc,
		Status:      i.cardStatus(card),
		Priority:    cardPriority(card.Labels),
		Category:    listName,
		Tag:         cardTag(card.ID),
		DueDate:     card.Due,
	}
	for _, checklist := range card.Checklists {
		for _, item := range checklist.CheckItems {
			t.SubTasks = append(t.SubTasks, task.SubTask{
				Title:     item.Name,
				Completed: item.State == "complete",
			})
		}
	}
	return t
}

func cardTag(cardID string) string {
	if len(cardID) > trelloTagLen {
		return cardID[:trelloTagLen]
	}
	return cardID
}

func (i *TrelloImporter) cardStatus(card trelloCard) task.Status {
	if card.Closed || card.DueComplete {
		return task.StatusCompleted
	}
	if card.DateLastActivity != nil && i.now().Sub(*card.DateLastActivity) < trelloActivityWindow {
		return task.StatusInProgress
	}
	return task.StatusPending
}

func cardPriority(labels []trelloLabel) task.Priority {
	for _, l := range labels {
		name := strings.ToLower(l.Name)
		switch {
		case strings.Contains(name, "high") || strings.Contains(name, "urgent") ||
			strings.Contains(name, "critical") || strings.Contains(name, "важн") ||
			strings.Contains(name, "срочн") || l.Color == "red" || l.Color == "orange":
			return task.PriorityHigh
		case strings.Contains(name, "low") || strings.Contains(name, "minor") ||
			strings.Contains(name, "низк") || l.Color == "green" || l.Color == "blue":
			return task.PriorityLow
		}
	}
	return task.PriorityMedium
}

func (i *TrelloImporter) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", i.apiKey)
	params.Set("token", i.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return cerr.NewError(cerr.Internal, "failed to build trello request", err)
	}
	resp, err := i.hc.Do(req)
	if err != nil {
		return cerr.NewError(cerr.Unavailable, "trello request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return wrapHTTPStatus("trello", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return cerr.NewError(cerr.Unavailable, "failed to decode trello response", err)
	}
	return nil
}
