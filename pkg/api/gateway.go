package api

import "context"

//----------------------------------------------------------------
// Task lifecycle
//----------------------------------------------------------------

// TaskState is the coarse lifecycle state reported to callers while a
// task moves through the engine.
type TaskState string

const (
	TaskStateSubmitted TaskState = "submitted"
	TaskStateWorking   TaskState = "working"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
)

// SessionContext identifies where an inbound task came from and how to
// route updates back to it.
type SessionContext struct {
	// ChannelID is the identifier of the channel the task arrived on.
	ChannelID string
	// TaskID is the unique identifier of this task.
	TaskID string
	// ContextID groups related tasks from the same caller, when the
	// channel provides one.
	ContextID string
	// Username is a display name for logs and monitors.
	Username string
}

// TaskMessage is a normalized inbound task handed from a channel to the
// engine. Content carries the raw instruction payload; the engine owns
// its interpretation.
type TaskMessage struct {
	Session SessionContext
	Content string
}

//----------------------------------------------------------------
// Channel contracts
//----------------------------------------------------------------

// Channel is a transport surface that receives tasks and reports results.
type Channel interface {
	// ID returns the unique channel identifier (e.g. "a2a", "web").
	ID() string
	// Start begins listening for inbound tasks. Blocks until ctx is done
	// or the listener fails.
	Start(ctx context.Context) error
	// Stop shuts down the channel and releases resources.
	Stop() error
	// UpdateStatus reports a task state change, optionally with a
	// human-readable progress message.
	UpdateStatus(session SessionContext, state TaskState, message string) error
	// AddArtifact delivers a named output produced by the task.
	AddArtifact(session SessionContext, name string, content string) error
}

// ChannelContext carries the dependencies a channel factory needs.
type ChannelContext struct {
	// Handler receives every inbound task message.
	Handler TaskHandler
	// AgentName and AgentDescription feed discovery surfaces such as
	// the agent card.
	AgentName        string
	AgentDescription string
}

// TaskHandler processes one inbound task. Implementations report
// progress and deliver artifacts through the TaskUpdater they were
// configured with; the returned error marks the task failed.
type TaskHandler func(ctx context.Context, msg TaskMessage) error

//----------------------------------------------------------------
// Engine contracts
//----------------------------------------------------------------

// TaskUpdater routes status updates and artifacts back to the channel a
// task arrived on.
type TaskUpdater interface {
	UpdateStatus(session SessionContext, state TaskState, message string) error
	AddArtifact(session SessionContext, name string, content string) error
}

// TaskEngine is the core task processor behind every channel.
type TaskEngine interface {
	// HandleTask runs one task end to end.
	HandleTask(ctx context.Context, msg TaskMessage) error
	// SetUpdater wires the engine to the gateway's update router.
	SetUpdater(updater TaskUpdater)
}
