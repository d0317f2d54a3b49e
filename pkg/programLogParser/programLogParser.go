package programLogParser

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// programLogPrefix fronts text payloads emitted by the executing program.
	programLogPrefix = "Program log: "

	// programDataPrefix fronts binary payloads emitted by the executing
	// program. Both channels carry events; everything after the prefix is
	// handed to the decoder unchanged.
	programDataPrefix = "Program data: "

	// cpiProgramPlaceholder stands in for frames owned by foreign programs.
	// Their real ids are irrelevant; the frame only exists so completion
	// markers pop the right depth.
	cpiProgramPlaceholder = "cpi"
)

var consumedLineRegex = regexp.MustCompile(`^Program (.*) consumed .*$`)

// systemLogClass buckets a system-attributed log line by the structural
// marker it carries. Every line lands in exactly one bucket.
type systemLogClass int

const (
	systemLogNoop systemLogClass = iota
	systemLogEnterTarget
	systemLogEnterOther
	systemLogComplete
)

// ProgramLogParser extracts one program's events from the log lines a
// transaction produced. The runtime interleaves output from every program a
// transaction touches into a single flat stream, so the parser replays the
// invocation structure line by line and only feeds the decoder payloads the
// target program actually emitted.
type ProgramLogParser struct {
	logger    *zap.Logger
	programID string
	decoder   EventDecoder
}

func NewProgramLogParser(programID string, decoder EventDecoder, logger *zap.Logger) *ProgramLogParser {
	return &ProgramLogParser{
		logger:    logger,
		programID: programID,
		decoder:   decoder,
	}
}

// ParseLogs walks the transaction's log lines once, in order, and returns the
// decoded events in the order their lines appear in the stream.
func (plp *ProgramLogParser) ParseLogs(logs []string) ([]interface{}, error) {
	var events []interface{}
	err := plp.ParseLogsWithCallback(logs, func(event interface{}) error {
		events = append(events, event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// ParseLogsWithCallback walks the transaction's log lines once, in order, and
// invokes emit for every payload the decoder recognizes on a line owned by
// the target program. A non-nil error from emit aborts the walk.
func (plp *ProgramLogParser) ParseLogsWithCallback(logs []string, emit EmitEventFunc) error {
	cursor := NewLogCursor(logs)

	firstLine, ok := cursor.Next()
	if !ok {
		return errors.Wrap(ErrMalformedLogStream, "transaction produced no log lines")
	}
	execution, err := NewExecutionContext(firstLine)
	if err != nil {
		return err
	}

	for {
		line, ok := cursor.Next()
		if !ok {
			return nil
		}

		result, err := plp.processLine(cursor, execution, line)
		if err != nil {
			return err
		}
		if result.kind != lineKindEvent {
			continue
		}

		plp.logger.Sugar().Debugw("Decoded program event",
			zap.String("programId", plp.programID),
		)
		if err := emit(result.event); err != nil {
			return err
		}
	}
}

// processLine classifies one line against the current execution state and
// applies its effect. Lines owned by the target program are offered to the
// decoder; everything else is treated as runtime output and can only move
// the invocation stack.
func (plp *ProgramLogParser) processLine(cursor *LogCursor, execution *ExecutionContext, line string) (lineResult, error) {
	currentProgram, err := execution.Current()
	if err != nil {
		return lineResult{}, err
	}

	if currentProgram == plp.programID {
		if payload, ok := programLogPayload(line); ok {
			if event, decoded := plp.decoder.Decode(payload); decoded {
				return lineResult{kind: lineKindEvent, event: event}, nil
			}
			// A plain print from the target program, not an event.
			return lineResult{kind: lineKindNoop}, nil
		}
	}

	return plp.processSystemLine(cursor, execution, line)
}

// processSystemLine applies the structural effect of a runtime-attributed
// line: opening a frame, closing one, or nothing.
func (plp *ProgramLogParser) processSystemLine(cursor *LogCursor, execution *ExecutionContext, line string) (lineResult, error) {
	switch plp.classifySystemLog(line) {
	case systemLogEnterTarget:
		execution.Push(plp.programID)
		return lineResult{kind: lineKindEnterProgram, enteredProgram: plp.programID}, nil

	case systemLogEnterOther:
		execution.Push(cpiProgramPlaceholder)
		return lineResult{kind: lineKindEnterProgram, enteredProgram: cpiProgramPlaceholder}, nil

	case systemLogComplete:
		if err := execution.Pop(); err != nil {
			return lineResult{}, err
		}
		// The runtime follows every compute-units line with a success or
		// failure line for the same frame. Discard it unread so it cannot be
		// misclassified.
		cursor.Next()
		return lineResult{kind: lineKindExitInvocation}, nil

	default:
		return lineResult{kind: lineKindNoop}, nil
	}
}

// classifySystemLog inspects the head of a line, the text before the first
// colon, for the runtime's structural markers. Using only the head keeps
// program prints such as "Program log: Program X invoke" from being mistaken
// for real markers.
func (plp *ProgramLogParser) classifySystemLog(line string) systemLogClass {
	head := line
	if idx := strings.Index(line, ":"); idx >= 0 {
		head = line[:idx]
	}

	switch {
	case strings.HasPrefix(head, "Program "+plp.programID+" invoke"):
		return systemLogEnterTarget
	case strings.Contains(head, "invoke"):
		return systemLogEnterOther
	case consumedLineRegex.MatchString(head):
		return systemLogComplete
	default:
		return systemLogNoop
	}
}

// programLogPayload strips the log prefix from a program-owned line. Text
// events arrive behind "Program log: ", binary events behind "Program data: ".
func programLogPayload(line string) (string, bool) {
	if strings.HasPrefix(line, programLogPrefix) {
		return strings.TrimPrefix(line, programLogPrefix), true
	}
	if strings.HasPrefix(line, programDataPrefix) {
		return strings.TrimPrefix(line, programDataPrefix), true
	}
	return "", false
}
