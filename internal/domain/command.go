package domain

type CommandKind string

const (
	CommandStart CommandKind = "start"
	CommandStop  CommandKind = "stop"
)

// Command is a request delivered to the recorder service. OutputPath and
// SourceMode are only meaningful for CommandStart.
type Command struct {
	Kind       CommandKind
	OutputPath string
	SourceMode SourceMode
}

func StartCommand(outputPath string, mode SourceMode) Command {
	return Command{Kind: CommandStart, OutputPath: outputPath, SourceMode: mode}
}

func StopCommand() Command {
	return Command{Kind: CommandStop}
}
