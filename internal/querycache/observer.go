package querycache

// Observer receives cache signals. internal/metrics exports them to
// Prometheus. Methods run with the store locked and must not call back into
// it.
type Observer interface {
	Hit(endpoint string)
	Miss(endpoint string)
	Fetched(endpoint string, err error)
	Evicted(endpoint string, reason string)
	Invalidated(endpoint string)
}

// Eviction reasons passed to Observer.Evicted.
const (
	EvictExpired  = "expired"
	EvictCapacity = "capacity"
)

// NoopObserver discards every signal.
type NoopObserver struct{}

func (NoopObserver) Hit(string)             {}
func (NoopObserver) Miss(string)            {}
func (NoopObserver) Fetched(string, error)  {}
func (NoopObserver) Evicted(string, string) {}
func (NoopObserver) Invalidated(string)     {}

// Observers fans every signal out to each of obs in order.
func Observers(obs ...Observer) Observer {
	return multiObserver(obs)
}

type multiObserver []Observer

func (m multiObserver) Hit(endpoint string) {
	for _, o := range m {
		o.Hit(endpoint)
	}
}

func (m multiObserver) Miss(endpoint string) {
	for _, o := range m {
		o.Miss(endpoint)
	}
}

func (m multiObserver) Fetched(endpoint string, err error) {
	for _, o := range m {
		o.Fetched(endpoint, err)
	}
}

func (m multiObserver) Evicted(endpoint, reason string) {
	for _, o := range m {
		o.Evicted(endpoint, reason)
	}
}

func (m multiObserver) Invalidated(endpoint string) {
	for _, o := range m {
		o.Invalidated(endpoint)
	}
}
