package handlers

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ruralpay/ledgersim/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runResult struct {
	out    string
	errOut string
	err    error
	engine *services.TransactionService
}

func run(t *testing.T, verbose bool, commands string) runResult {
	t.Helper()
	var out, errOut bytes.Buffer

	presenter := NewTextPresenter(&out, verbose, "281Bank")
	engine := newTestEngine(t, services.WithEventSink(presenter), services.WithCheckedBalance(verbose))
	handler := NewCommandHandler(engine, services.NewQueryService(engine, services.DefaultHistoryLimit), presenter, &errOut)

	err := handler.Run(context.Background(), strings.NewReader(commands))
	return runResult{out: out.String(), errOut: errOut.String(), err: err, engine: engine}
}

const scenario = `# session
login alice 1111 10.0.0.1
login bob 0000 10.0.0.2
balance alice 10.0.0.1
balance bob 10.0.0.2
balance carl 10.0.0.3
balance alice 10.0.0.9

place 08:01:02:00:00:00 10.0.0.1 alice bob 100 08:01:02:00:00:00 o
place 08:01:02:00:00:05 10.0.0.1 alice alice 5 08:01:02:00:00:05 o
place 08:01:02:00:00:05 10.0.0.1 alice bob 1 08:01:02:00:00:07 s
place 08:01:02 bad
out alice 10.0.0.1
out alice 10.0.0.1
$$$
l 08:01:01:00:00:00 08:01:03:00:00:00
l 08:01:02:00:00:00 08:01:02:00:00:00
r 08:01:02:00:00:00 08:01:02:00:00:06
h bob
h goofy
s 08:01:02:12:00:00
`

func TestCommandHandler_VerboseScenario(t *testing.T) {
	res := run(t, true, scenario)
	require.NoError(t, res.err)

	want := lines(
		"User alice logged in.",
		"Login failed for bob.",
		"As of 80101000000, alice has a balance of $1000.",
		"User bob is not logged in.",
		"User carl does not exist.",
		"Fraudulent balance check detected, aborting request.",
		"Transaction 0 placed at 80102000000: $100 from alice to bob at 80102000000.",
		"Self transactions are not allowed.",
		"Transaction 0 executed at 80102000000: $100 from alice to bob.",
		"Transaction 1 placed at 80102000005: $1 from alice to bob at 80102000007.",
		"User alice logged out.",
		"Logout failed for alice.",
		"Transaction 1 executed at 80102000007: $1 from alice to bob.",
		"0: alice sent 100 dollars to bob at 80102000000.",
		"1: alice sent 1 dollar to bob at 80102000007.",
		"There were 2 transactions that were executed between time 80101000000 to 80103000000.",
		"List Transactions requires a non-empty time interval.",
		"281Bank has collected 20 dollars in fees over 6 seconds.",
		"Customer bob account summary:",
		"Balance: $596",
		"Total # of transactions: 2",
		"Incoming 2:",
		"0: alice sent 100 dollars to bob at 80102000000.",
		"1: alice sent 1 dollar to bob at 80102000007.",
		"Outgoing 0:",
		"User goofy does not exist.",
		"Summary of [80102000000, 80103000000):",
		"0: alice sent 100 dollars to bob at 80102000000.",
		"1: alice sent 1 dollar to bob at 80102000007.",
		"There were a total of 2 transactions, 281Bank has collected 20 dollars in fees.",
	)
	assert.Equal(t, want, res.out)
	assert.Equal(t, "Invalid place command\n", res.errOut)
	assert.Equal(t, services.ModeQuery, res.engine.Mode())
}

func TestCommandHandler_QuietScenario(t *testing.T) {
	res := run(t, false, scenario)
	require.NoError(t, res.err)

	assert.True(t, strings.HasPrefix(res.out, lines(
		"As of 80101000000, alice has a balance of $1000.",
		"As of 80101000000, bob has a balance of $500.",
		"As of 80101000000, alice has a balance of $1000.",
		"0: alice sent 100 dollars to bob at 80102000000.",
	)), res.out)
	assert.NotContains(t, res.out, "logged in")
	assert.NotContains(t, res.out, "placed at")
}

func TestCommandHandler_ProtocolViolationStopsRun(t *testing.T) {
	res := run(t, true, `login alice 1111 10.0.0.1
place 08:01:02:00:00:10 10.0.0.1 alice bob 100 08:01:02:00:00:10 o
place 08:01:02:00:00:05 10.0.0.1 alice bob 100 08:01:02:00:00:10 o
balance alice 10.0.0.1
`)

	require.Error(t, res.err)
	assert.ErrorIs(t, res.err, services.ErrProtocolViolation)
	assert.Equal(t, "Invalid decreasing timestamp in 'place' command.", res.err.Error())
	assert.NotContains(t, res.out, "As of")
}

func TestCommandHandler_ExecutionBeforePlacement(t *testing.T) {
	res := run(t, false, `place 08:01:02:00:00:10 10.0.0.1 alice bob 100 08:01:02:00:00:09 o
`)
	assert.ErrorIs(t, res.err, services.ErrExecutionBeforePlacement)
}

func TestCommandHandler_MalformedPlace(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"too few tokens", "place 08:01:02:00:00:00 10.0.0.1 alice bob 100 o"},
		{"too many tokens", "place 08:01:02:00:00:00 10.0.0.1 alice bob 100 08:01:02:00:00:00 o extra"},
		{"amount not a number", "place 08:01:02:00:00:00 10.0.0.1 alice bob ten 08:01:02:00:00:00 o"},
		{"zero amount", "place 08:01:02:00:00:00 10.0.0.1 alice bob 0 08:01:02:00:00:00 o"},
		{"unknown fee mode", "place 08:01:02:00:00:00 10.0.0.1 alice bob 10 08:01:02:00:00:00 x"},
		{"bad timestamp", "place ::: 10.0.0.1 alice bob 10 08:01:02:00:00:00 o"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, true, "login alice 1111 10.0.0.1\n"+tt.line+"\n")
			require.NoError(t, res.err)
			assert.Equal(t, "Invalid place command\n", res.errOut)
			assert.Equal(t, 0, res.engine.Pending())
		})
	}
}

func TestCommandHandler_QueryModeRules(t *testing.T) {
	t.Run("operational commands are ignored after the marker", func(t *testing.T) {
		res := run(t, true, "$$$\nlogin alice 1111 10.0.0.1\nbalance alice 10.0.0.1\n")
		require.NoError(t, res.err)
		assert.Empty(t, res.out)
	})

	t.Run("queries are ignored before the marker", func(t *testing.T) {
		res := run(t, true, "h alice\n")
		require.NoError(t, res.err)
		assert.Empty(t, res.out)
	})

	t.Run("blank query command ends the run", func(t *testing.T) {
		res := run(t, true, "$$$\nh goofy\n   \nh alice\n")
		require.NoError(t, res.err)
		assert.Equal(t, "User goofy does not exist.\n", res.out)
	})

	t.Run("unreadable interval is empty", func(t *testing.T) {
		res := run(t, true, "$$$\nr 08:01:02:00:00:00\n")
		require.NoError(t, res.err)
		assert.Equal(t, "Bank Revenue requires a non-empty time interval.\n", res.out)
	})
}

func TestCommandHandler_ContextCanceled(t *testing.T) {
	var out, errOut bytes.Buffer
	presenter := NewTextPresenter(&out, true, "")
	engine := newTestEngine(t, services.WithEventSink(presenter))
	handler := NewCommandHandler(engine, services.NewQueryService(engine, 0), presenter, &errOut)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := handler.Run(ctx, strings.NewReader("login alice 1111 10.0.0.1\n"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out.String())
}
