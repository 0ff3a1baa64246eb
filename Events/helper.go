package events

import (
	"github.com/go-chi/chi/v5"

	comments "github.com/pritamduttaofficial/VideoTube/Events/Comments"
	dashboard "github.com/pritamduttaofficial/VideoTube/Events/Dashboard"
	health "github.com/pritamduttaofficial/VideoTube/Events/Health"
	likes "github.com/pritamduttaofficial/VideoTube/Events/Likes"
	playlists "github.com/pritamduttaofficial/VideoTube/Events/Playlists"
	subscriptions "github.com/pritamduttaofficial/VideoTube/Events/Subscriptions"
	tweets "github.com/pritamduttaofficial/VideoTube/Events/Tweets"
	users "github.com/pritamduttaofficial/VideoTube/Events/Users"
	videos "github.com/pritamduttaofficial/VideoTube/Events/Videos"
)

// Registry bundles every feature handler, constructed once in main with its
// dependencies and mounted under the API version prefix.
type Registry struct {
	Users         *users.Handler
	Videos        *videos.Handler
	Comments      *comments.Handler
	Likes         *likes.Handler
	Tweets        *tweets.Handler
	Playlists     *playlists.Handler
	Subscriptions *subscriptions.Handler
	Dashboard     *dashboard.Handler
	Health        *health.Handler
}

func (reg *Registry) Handler(r chi.Router) {
	r.Route("/users", reg.Users.Handle)
	r.Route("/videos", reg.Videos.Handle)
	r.Route("/comments", reg.Comments.Handle)
	r.Route("/likes", reg.Likes.Handle)
	r.Route("/tweets", reg.Tweets.Handle)
	r.Route("/playlist", reg.Playlists.Handle)
	r.Route("/subscriptions", reg.Subscriptions.Handle)
	r.Route("/dashboard", reg.Dashboard.Handle)
	r.Route("/healthcheck", reg.Health.Handle)
}
