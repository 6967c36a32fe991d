package feeds

// Channel names the path an update arrived on.
type Channel string

const (
	ChannelSeed    Channel = "seed"
	ChannelPoll    Channel = "poll"
	ChannelPush    Channel = "push"
	ChannelRefresh Channel = "refresh"
)

// Outcome is what became of a delivered update.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	OutcomeEmpty    Outcome = "empty"
)

// Observer is told about feed lifecycle and delivery. Implementations must
// be safe for concurrent use and must not call back into the Manager.
type Observer interface {
	FeedStarted(key string)
	FeedStopped(key string)
	ObserveUpdate(key string, via Channel, outcome Outcome)
	ObserveQueryFailure(key string)
	ObserveSubscribeFailure(key string)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) FeedStarted(string) {}
func (NopObserver) FeedStopped(string) {}
func (NopObserver) ObserveUpdate(string, Channel, Outcome) {}
func (NopObserver) ObserveQueryFailure(string) {}
func (NopObserver) ObserveSubscribeFailure(string) {}
