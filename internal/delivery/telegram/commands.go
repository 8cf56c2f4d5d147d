package telegram

import (
	"errors"
	"strings"
)

const HelpText = "`/alert <query...>`\n" +
	"Search pairs matching the query, then pick a pair, a metric and a direction with threshold.\n\n" +
	"`/alert remove <pair_address>`\n" +
	"Remove your alerts for that pair. Use `/alert remove all` to remove every alert.\n\n" +
	"`/alert list`\n" +
	"List your active alerts.\n\n" +
	"`/alert help`\n" +
	"Show this help.\n\n" +
	"Metrics: `market cap` (reply `1`). Directions: `above` or `below`.\n" +
	"Reply `cancel` at any prompt to stop the setup."

var ErrInvalidArguments = errors.New("invalid arguments")

type AlertCommandKind int

const (
	AlertSet AlertCommandKind = iota
	AlertRemove
	AlertList
	AlertHelp
)

type AlertCommand struct {
	Kind AlertCommandKind
	// Arg is the query for AlertSet and the pair address or "all" for AlertRemove.
	Arg string
}

func ParseAlertCommand(args string) (AlertCommand, error) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		return AlertCommand{}, ErrInvalidArguments
	}

	switch parts[0] {
	case "help":
		return AlertCommand{Kind: AlertHelp}, nil
	case "list":
		return AlertCommand{Kind: AlertList}, nil
	case "remove":
		if len(parts) != 2 {
			return AlertCommand{Kind: AlertRemove}, ErrInvalidArguments
		}
		return AlertCommand{Kind: AlertRemove, Arg: parts[1]}, nil
	default:
		return AlertCommand{Kind: AlertSet, Arg: strings.Join(parts, " ")}, nil
	}
}
