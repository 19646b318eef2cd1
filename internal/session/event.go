package session

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/crop-explorer/internal/selection"
)

// Kind identifies a user or scheduler event.
type Kind int

// Event kinds.
const (
	SetItem Kind = iota
	SetElement
	SetYear
	SetScale
	SetTopN
	ToggleSelect
	ClearSelection
	Step
	Reset
	TogglePlay
	Tick
)

var kindNames = [...]string{
	SetItem:        "set_item",
	SetElement:     "set_element",
	SetYear:        "set_year",
	SetScale:       "set_scale",
	SetTopN:        "set_top_n",
	ToggleSelect:   "toggle_select",
	ClearSelection: "clear_selection",
	Step:           "step",
	Reset:          "reset",
	TogglePlay:     "toggle_play",
	Tick:           "tick",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Event is one transition request. Only the field matching Kind is read.
type Event struct {
	Kind    Kind
	Item    string
	Element selection.Element
	Year    int
	Scale   selection.ScaleMode
	TopN    int
	Area    string
	// Delta is the year step for Step events, +1 or -1.
	Delta int
}

// ErrQuit is returned by ParseEvent for the quit command.
var ErrQuit = eris.New("session: quit")

// ParseEvent reads one line of the interactive command language:
//
//	item <name> | element <name> | year <n> | scale linear|log | top <n>
//	select <area> | clear | next | prev | play | reset | quit
func ParseEvent(line string) (Event, error) {
	line = strings.TrimSpace(line)
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	needArg := func() error {
		if arg == "" {
			return eris.Errorf("session: %s needs an argument", cmd)
		}
		return nil
	}

	switch strings.ToLower(cmd) {
	case "item":
		if err := needArg(); err != nil {
			return Event{}, err
		}
		return Event{Kind: SetItem, Item: arg}, nil
	case "element":
		e, err := selection.ParseElement(arg)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: SetElement, Element: e}, nil
	case "year":
		y, err := strconv.Atoi(arg)
		if err != nil {
			return Event{}, eris.Wrapf(err, "session: bad year %q", arg)
		}
		return Event{Kind: SetYear, Year: y}, nil
	case "scale":
		m, err := selection.ParseScaleMode(arg)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: SetScale, Scale: m}, nil
	case "top":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return Event{}, eris.Wrapf(err, "session: bad top-n %q", arg)
		}
		return Event{Kind: SetTopN, TopN: n}, nil
	case "select":
		if err := needArg(); err != nil {
			return Event{}, err
		}
		return Event{Kind: ToggleSelect, Area: arg}, nil
	case "clear":
		return Event{Kind: ClearSelection}, nil
	case "next":
		return Event{Kind: Step, Delta: 1}, nil
	case "prev":
		return Event{Kind: Step, Delta: -1}, nil
	case "play", "pause":
		return Event{Kind: TogglePlay}, nil
	case "reset":
		return Event{Kind: Reset}, nil
	case "quit", "exit":
		return Event{}, ErrQuit
	case "":
		return Event{}, eris.New("session: empty command")
	}
	return Event{}, eris.Errorf("session: unknown command %q", cmd)
}
