package arena

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/playarena/arena-gateway/internal/apiclient"
	"github.com/playarena/arena-gateway/internal/credentials"
)

// Service wraps the endpoints of the platform API, every call is authenticated with the given store.
type Service struct {
	client *apiclient.Client
}

func NewService(client *apiclient.Client) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("arena service initialized without an api client")
	}
	return &Service{client: client}, nil
}

func (s *Service) Me(ctx context.Context, store credentials.Store) (Profile, error) {
	return apiclient.Call[Profile](ctx, s.client, store, apiclient.NewRequest(http.MethodGet, "/users/me"))
}

func (s *Service) Profile(ctx context.Context, store credentials.Store, id string) (Profile, error) {
	return apiclient.Call[Profile](ctx, s.client, store, apiclient.NewRequest(http.MethodGet, "/users/"+url.PathEscape(id)))
}

func (s *Service) Profiles(ctx context.Context, store credentials.Store) ([]Profile, error) {
	return apiclient.Call[[]Profile](ctx, s.client, store, apiclient.NewRequest(http.MethodGet, "/users"))
}

func (s *Service) Teams(ctx context.Context, store credentials.Store) ([]Team, error) {
	return apiclient.Call[[]Team](ctx, s.client, store, apiclient.NewRequest(http.MethodGet, "/teams"))
}

func (s *Service) Team(ctx context.Context, store credentials.Store, id string) (Team, error) {
	return apiclient.Call[Team](ctx, s.client, store, apiclient.NewRequest(http.MethodGet, "/teams/"+url.PathEscape(id)))
}

func (s *Service) Tournaments(ctx context.Context, store credentials.Store) ([]Tournament, error) {
	return apiclient.Call[[]Tournament](ctx, s.client, store, apiclient.NewRequest(http.MethodGet, "/tournaments"))
}

// RegisterTeam signs a team up for a tournament. The API decides whether the caller is allowed to.
func (s *Service) RegisterTeam(ctx context.Context, store credentials.Store, tournamentID, teamID string) error {
	req, err := apiclient.NewJSONRequest(
		http.MethodPost,
		"/tournaments/"+url.PathEscape(tournamentID)+"/register",
		map[string]string{"teamId": teamID},
	)
	if err != nil {
		return err
	}
	_, err = s.client.Do(ctx, store, req)
	return err
}

func (s *Service) Posts(ctx context.Context, store credentials.Store) ([]Post, error) {
	return apiclient.Call[[]Post](ctx, s.client, store, apiclient.NewRequest(http.MethodGet, "/posts"))
}

func (s *Service) CreatePost(ctx context.Context, store credentials.Store, post NewPost) (Post, error) {
	if post.Content == "" {
		return Post{}, fmt.Errorf("a post cannot be empty")
	}
	req, err := apiclient.NewJSONRequest(http.MethodPost, "/posts", post)
	if err != nil {
		return Post{}, err
	}
	return apiclient.Call[Post](ctx, s.client, store, req)
}
