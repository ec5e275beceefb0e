// Package arena contains the typed endpoints of the platform API used by the gateway.
package arena

import "time"

type Profile struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Country     string `json:"country,omitempty"`
}

func (p Profile) SearchFields() []string {
	return []string{p.Username, p.DisplayName}
}

type Team struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Tag       string   `json:"tag"`
	Game      string   `json:"game,omitempty"`
	CaptainID string   `json:"captainId,omitempty"`
	MemberIDs []string `json:"memberIds,omitempty"`
}

func (t Team) SearchFields() []string {
	return []string{t.Name, t.Tag}
}

type TournamentStatus string

const (
	TournamentUpcoming TournamentStatus = "upcoming"
	TournamentOngoing  TournamentStatus = "ongoing"
	TournamentFinished TournamentStatus = "finished"
)

type Tournament struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Game            string           `json:"game,omitempty"`
	Status          TournamentStatus `json:"status"`
	StartsAt        time.Time        `json:"startsAt"`
	MaxTeams        int              `json:"maxTeams,omitempty"`
	RegisteredTeams []string         `json:"registeredTeams,omitempty"`
}

func (t Tournament) SearchFields() []string {
	return []string{t.Title, t.Game}
}

type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p Post) SearchFields() []string {
	return append([]string{p.Content}, p.Tags...)
}

type NewPost struct {
	Content string   `json:"content"`
	Tags    []string `json:"tags,omitempty"`
}
