package server

import (
	"time"

	"pawhaven/internal/models"
	"pawhaven/internal/service"
)

const dateLayout = "2006-01-02"

// userView is the public projection of a user. The password hash never
// leaves the models layer, but the projection also keeps incidental fields
// out of listing payloads.
type userView struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type replyView struct {
	ID        uint      `json:"id"`
	ListingID uint      `json:"listing_id"`
	AuthorID  uint      `json:"author_id"`
	Author    string    `json:"author,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type listingView struct {
	ID          uint        `json:"id"`
	OwnerID     uint        `json:"owner_id"`
	Owner       string      `json:"owner,omitempty"`
	Type        string      `json:"type"`
	Location    string      `json:"location"`
	Age         int         `json:"age"`
	Weight      int         `json:"weight"`
	Description string      `json:"description"`
	StartDate   string      `json:"start_date"`
	EndDate     string      `json:"end_date"`
	Image       string      `json:"image,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	Replies     []replyView `json:"replies,omitempty"`
}

func (s *Server) userToView(u *models.User, includeEmail bool) userView {
	v := userView{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
	if includeEmail {
		v.Email = u.Email
	}
	v.Image = s.imageService.Path(u.Image)
	return v
}

func replyToView(r models.Reply) replyView {
	v := replyView{
		ID:        r.ID,
		ListingID: r.ListingID,
		AuthorID:  r.AuthorID,
		Body:      r.Body,
		CreatedAt: r.CreatedAt,
	}
	if r.Author.ID != 0 {
		v.Author = r.Author.Username
	}
	return v
}

func (s *Server) listingToView(l *models.Listing, withReplies bool) listingView {
	v := listingView{
		ID:          l.ID,
		OwnerID:     l.OwnerID,
		Type:        l.Type,
		Location:    l.Location,
		Age:         l.Age,
		Weight:      l.Weight,
		Description: l.Description,
		StartDate:   l.StartDate.Format(dateLayout),
		EndDate:     l.EndDate.Format(dateLayout),
		CreatedAt:   l.CreatedAt,
	}
	if l.Owner.ID != 0 {
		v.Owner = l.Owner.Username
	}
	v.Image = s.imageService.Path(l.Image)
	if withReplies {
		v.Replies = make([]replyView, 0, len(l.Replies))
		for _, r := range l.Replies {
			v.Replies = append(v.Replies, replyToView(r))
		}
	}
	return v
}

func (s *Server) pageToViews(page *service.Page) []listingView {
	views := make([]listingView, 0, len(page.Items))
	for i := range page.Items {
		views = append(views, s.listingToView(&page.Items[i], false))
	}
	return views
}
