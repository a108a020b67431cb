package recurring

import (
	"fmt"
	"strings"
	"time"

	"github.com/cozyartz/etchNFT/pkg/loop"
)

// ParsePolicy reads a policy from the -policy flag.
//
// Syntax: forever[:COOLDOWN] | backlog | once
func ParsePolicy(s string) (Policy, error) {
	typ, param, ok := strings.Cut(s, ":")
	switch typ {
	case "forever":
		if !ok || param == "" {
			return Forever(0), nil
		}

		cooldown, err := time.ParseDuration(param)
		if err != nil {
			return nil, fmt.Errorf(`failed to parse: %s as "forever:COOLDOWN": %w`, s, err)
		}
		return Forever(cooldown), nil
	case "backlog", "once":
		if ok {
			return nil, fmt.Errorf("%s policy does not take parameters: %s", typ, s)
		}
		if typ == "once" {
			return Once(), nil
		}
		return Backlog(), nil
	}
	return nil, fmt.Errorf("unknown policy name: %s (should be one of -- forever|backlog|once)", typ)
}

// Policy decides what a loop does after each task.
type Policy interface {
	// Next decides the next step from what the task did.
	//
	// updated is true when the task found something to do.
	Next(updated bool, err error) loop.Next
	String() string
}

// Forever repeats the task immediately while it finds something to do,
// and waits cooldown otherwise.
func Forever(cooldown time.Duration) Policy {
	return forever(cooldown)
}

type forever time.Duration

func (f forever) String() string {
	return fmt.Sprintf("forever:%s", time.Duration(f).String())
}

func (f forever) Next(updated bool, err error) loop.Next {
	if updated {
		return loop.Continue(0)
	}
	return loop.Continue(time.Duration(f))
}

// Backlog repeats the task while it finds something to do, then stops.
func Backlog() Policy {
	return backlog{}
}

type backlog struct{}

func (backlog) String() string {
	return "backlog"
}

func (backlog) Next(updated bool, err error) loop.Next {
	if updated {
		return loop.Continue(0)
	}
	return loop.Break(nil)
}

// Once runs the task just one time.
func Once() Policy {
	return once{}
}

type once struct{}

func (once) String() string {
	return "once"
}

func (once) Next(bool, error) loop.Next {
	return loop.Break(nil)
}

// UntilError stops the loop with the error a task returns. Otherwise, p decides.
func UntilError(p Policy) Policy {
	return untilError{base: p}
}

type untilError struct {
	base Policy
}

func (u untilError) String() string {
	return fmt.Sprintf("%s (until error)", u.base.String())
}

func (u untilError) Next(updated bool, err error) loop.Next {
	if err != nil {
		return loop.Break(err)
	}
	return u.base.Next(updated, err)
}
