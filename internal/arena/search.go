package arena

import (
	"context"
	"fmt"
	"strings"

	"github.com/playarena/arena-gateway/internal/credentials"
)

const (
	defaultPageSize int = 10
	maxPageSize     int = 100
)

// Kind selects which lists a search covers, the empty kind searches all of them.
type Kind string

const (
	KindAll         Kind = ""
	KindTeams       Kind = "teams"
	KindTournaments Kind = "tournaments"
	KindProfiles    Kind = "profiles"
)

func ParseKind(value string) (Kind, error) {
	switch kind := Kind(strings.ToLower(value)); kind {
	case KindAll, KindTeams, KindTournaments, KindProfiles:
		return kind, nil
	default:
		return KindAll, fmt.Errorf("unknown search kind %q", value)
	}
}

// Searchable values expose the text fields that a search matches against.
type Searchable interface {
	SearchFields() []string
}

// Search keeps the items where any field contains the text, ignoring case.
// An empty text matches everything.
func Search[T Searchable](items []T, text string) []T {
	text = strings.ToLower(strings.TrimSpace(text))
	output := []T{}
	for _, item := range items {
		if text == "" || matches(item.SearchFields(), text) {
			output = append(output, item)
		}
	}
	return output
}

func matches(fields []string, text string) bool {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), text) {
			return true
		}
	}
	return false
}

type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Paginate returns the 1-based page of items. Out of range pages are empty, invalid page numbers
// fall back to the first page and the page size is capped.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	total := len(items)
	output := Page[T]{
		Items:      []T{},
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: (total + pageSize - 1) / pageSize,
	}
	// compared before multiplying so huge page numbers cannot overflow
	if page > output.TotalPages {
		return output
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, total)
	output.Items = items[start:end]
	return output
}

// SearchResult is one entry of a search across the different lists.
type SearchResult struct {
	Kind     Kind   `json:"kind"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
}

type Query struct {
	Text     string
	Kind     Kind
	Page     int
	PageSize int
}

// Search fetches the lists selected by the query kind and filters them locally,
// results are ordered teams, tournaments and then profiles.
func (s *Service) Search(ctx context.Context, store credentials.Store, query Query) (Page[SearchResult], error) {
	results := []SearchResult{}
	if query.Kind == KindAll || query.Kind == KindTeams {
		teams, err := s.Teams(ctx, store)
		if err != nil {
			return Page[SearchResult]{}, err
		}
		for _, team := range Search(teams, query.Text) {
			results = append(results, SearchResult{Kind: KindTeams, ID: team.ID, Title: team.Name, Subtitle: team.Tag})
		}
	}
	if query.Kind == KindAll || query.Kind == KindTournaments {
		tournaments, err := s.Tournaments(ctx, store)
		if err != nil {
			return Page[SearchResult]{}, err
		}
		for _, tournament := range Search(tournaments, query.Text) {
			results = append(results, SearchResult{Kind: KindTournaments, ID: tournament.ID, Title: tournament.Title, Subtitle: tournament.Game})
		}
	}
	if query.Kind == KindAll || query.Kind == KindProfiles {
		profiles, err := s.Profiles(ctx, store)
		if err != nil {
			return Page[SearchResult]{}, err
		}
		for _, profile := range Search(profiles, query.Text) {
			results = append(results, SearchResult{Kind: KindProfiles, ID: profile.ID, Title: profile.DisplayName, Subtitle: profile.Username})
		}
	}
	return Paginate(results, query.Page, query.PageSize), nil
}
