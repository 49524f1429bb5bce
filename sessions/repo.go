package sessions

// Repo is the registry of live login sessions keyed by vanity code.
type Repo interface {
	CreateSession(user, callbackURL string, spoonfeed bool) (Session, error)
	GetSession(vanityCode string) (Session, error)
	ConsumeSession(vanityCode string) (Session, error)
	RemoveSession(vanityCode string)
	Count() int
}
