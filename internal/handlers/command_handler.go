package handlers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/ruralpay/ledgersim/internal/models"
	"github.com/ruralpay/ledgersim/internal/services"
)

// EndOfOperations switches the stream from operational commands to queries.
const EndOfOperations = "$$$"

// PlaceCommand is a tokenized place command.
type PlaceCommand struct {
	Timestamp models.Timestamp
	IP        string `validate:"required"`
	Sender    string `validate:"required"`
	Recipient string `validate:"required"`
	Amount    uint64 `validate:"gt=0"`
	ExecuteAt models.Timestamp
	FeeMode   string `validate:"oneof=o s"`
}

var errMalformedPlace = errors.New("malformed place command")

// CommandHandler drives the engine from a line-oriented command stream.
type CommandHandler struct {
	engine    *services.TransactionService
	queries   *services.QueryService
	presenter *TextPresenter
	validator *services.ValidationHelper
	errOut    io.Writer
}

func NewCommandHandler(engine *services.TransactionService, queries *services.QueryService, presenter *TextPresenter, errOut io.Writer) *CommandHandler {
	return &CommandHandler{
		engine:    engine,
		queries:   queries,
		presenter: presenter,
		validator: services.NewValidationHelper(),
		errOut:    errOut,
	}
}

// Run processes commands until the input ends, an empty query command is read, or a
// protocol violation occurs. Protocol violations are returned and must end the run.
func (h *CommandHandler) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if line == EndOfOperations {
			h.engine.EnterQueryMode()
			continue
		}
		if line[0] == '#' {
			continue
		}

		fields := strings.Fields(line)
		command := ""
		if len(fields) > 0 {
			command = fields[0]
		}

		if h.engine.Mode() == services.ModeOperational {
			if err := h.operational(command, fields); err != nil {
				return err
			}
			continue
		}

		if command == "" {
			break
		}
		if err := h.query(command, fields); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read commands: %w", err)
	}
	return nil
}

// arg returns the i-th argument or "" when the command is short.
func arg(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}

func (h *CommandHandler) operational(command string, fields []string) error {
	var err error
	switch command {
	case "login":
		_, err = h.engine.Login(arg(fields, 1), arg(fields, 2), arg(fields, 3))
	case "out":
		_, err = h.engine.Logout(arg(fields, 1), arg(fields, 2))
	case "balance":
		_, err = h.engine.Balance(arg(fields, 1), arg(fields, 2))
	case "place":
		cmd, perr := h.parsePlace(fields[1:])
		if perr != nil {
			log.Printf("[COMMAND] rejected place: %v", perr)
			fmt.Fprintln(h.errOut, "Invalid place command")
			return nil
		}
		_, err = h.engine.Place(services.PlaceRequest{
			PlacedAt:  cmd.Timestamp,
			IP:        cmd.IP,
			Sender:    cmd.Sender,
			Recipient: cmd.Recipient,
			Amount:    cmd.Amount,
			ExecuteAt: cmd.ExecuteAt,
			FeeMode:   models.FeeMode(cmd.FeeMode[0]),
		})
	}
	return err
}

func (h *CommandHandler) parsePlace(args []string) (*PlaceCommand, error) {
	if len(args) != 7 {
		return nil, fmt.Errorf("%w: want 7 arguments, got %d", errMalformedPlace, len(args))
	}

	placedAt, err := models.ParseTimestamp(args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", errMalformedPlace, err)
	}
	amount, err := strconv.ParseUint(args[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: amount %q", errMalformedPlace, args[4])
	}
	executeAt, err := models.ParseTimestamp(args[5])
	if err != nil {
		return nil, fmt.Errorf("%w: execution timestamp: %v", errMalformedPlace, err)
	}

	cmd := &PlaceCommand{
		Timestamp: placedAt,
		IP:        args[1],
		Sender:    args[2],
		Recipient: args[3],
		Amount:    amount,
		ExecuteAt: executeAt,
		FeeMode:   args[6],
	}
	if err := h.validator.ValidateStruct(cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedPlace, err)
	}
	return cmd, nil
}

func (h *CommandHandler) query(command string, fields []string) error {
	switch command {
	case "l":
		from, to, ok := parseInterval(fields)
		res, err := h.queries.List(from, to)
		if err != nil {
			return err
		}
		if !ok {
			res.EmptyInterval = true
		}
		h.presenter.RenderList(res)
	case "r":
		from, to, ok := parseInterval(fields)
		res, err := h.queries.Revenue(from, to)
		if err != nil {
			return err
		}
		if !ok {
			res.EmptyInterval = true
		}
		h.presenter.RenderRevenue(res)
	case "h":
		res, err := h.queries.History(arg(fields, 1))
		if err != nil {
			return err
		}
		h.presenter.RenderHistory(res)
	case "s":
		at, err := models.ParseTimestamp(arg(fields, 1))
		if err != nil {
			log.Printf("[COMMAND] rejected summary: %v", err)
			fmt.Fprintln(h.errOut, "Invalid summary command")
			return nil
		}
		res, err := h.queries.DaySummary(at)
		if err != nil {
			return err
		}
		h.presenter.RenderDaySummary(res)
	}
	return nil
}

// parseInterval reads the x and y arguments of l and r. Unreadable bounds are reported as
// an empty interval.
func parseInterval(fields []string) (from, to models.Timestamp, ok bool) {
	from, err := models.ParseTimestamp(arg(fields, 1))
	if err != nil {
		return 0, 0, false
	}
	to, err = models.ParseTimestamp(arg(fields, 2))
	if err != nil {
		return 0, 0, false
	}
	return from, to, true
}
