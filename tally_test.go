package tally_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/store/memory"
	"github.com/xraph/tally/supply"
	"github.com/xraph/tally/transfer"
	"github.com/xraph/tally/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLedger(t *testing.T, opts ...tally.Option) (*tally.Ledger, *memory.Store) {
	t.Helper()
	s := memory.New()
	opts = append([]tally.Option{tally.WithLogger(quietLogger())}, opts...)
	l := tally.New(s, opts...)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = l.Stop() })
	return l, s
}

func newInitialized(t *testing.T, holder account.ID, total uint64) (*tally.Ledger, *memory.Store) {
	t.Helper()
	l, s := newLedger(t)
	if _, err := l.Initialize(context.Background(), holder, types.NewBalance(total)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return l, s
}

func balanceOf(t *testing.T, l *tally.Ledger, a account.ID) types.Balance {
	t.Helper()
	b, err := l.BalanceOf(context.Background(), a)
	if err != nil {
		t.Fatalf("BalanceOf(%s): %v", a, err)
	}
	return b
}

func assertBalances(t *testing.T, l *tally.Ledger, want map[account.ID]uint64) {
	t.Helper()
	for a, w := range want {
		if got := balanceOf(t, l, a); !got.Equal(types.NewBalance(w)) {
			t.Errorf("balance(%s) = %s, want %d", a, got, w)
		}
	}
}

func assertAudited(t *testing.T, l *tally.Ledger) *tally.AuditReport {
	t.Helper()
	report, err := l.Audit(context.Background())
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	if !report.Balanced {
		t.Fatalf("Audit not balanced: %+v", report)
	}
	return report
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)

	s, err := l.Initialize(ctx, "firas.testnet", types.NewBalance(100))
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if s.InitialHolder != "firas.testnet" || !s.Total.Equal(types.NewBalance(100)) {
		t.Errorf("supply = %+v", s)
	}
	if s.ID.IsNil() {
		t.Error("supply ID is nil")
	}

	total, err := l.TotalSupply(ctx)
	if err != nil {
		t.Fatalf("TotalSupply: %v", err)
	}
	if !total.Equal(types.NewBalance(100)) {
		t.Errorf("TotalSupply = %s, want 100", total)
	}

	assertBalances(t, l, map[account.ID]uint64{
		"firas.testnet": 100,
		"nobody":        0,
	})
	assertAudited(t, l)
}

func TestInitializeTwiceIsRejected(t *testing.T) {
	ctx := context.Background()
	l, _ := newInitialized(t, "alice", 100)

	if _, err := l.Transfer(ctx, "alice", "bob", types.NewBalance(40)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	_, err := l.Initialize(ctx, "mallory", types.NewBalance(1000))
	if !errors.Is(err, tally.ErrAlreadyInitialized) {
		t.Fatalf("second Initialize: err = %v, want ErrAlreadyInitialized", err)
	}

	assertBalances(t, l, map[account.ID]uint64{"alice": 60, "bob": 40, "mallory": 0})
	total, _ := l.TotalSupply(ctx)
	if !total.Equal(types.NewBalance(100)) {
		t.Errorf("TotalSupply = %s, want 100", total)
	}
}

func TestInitializeEmptyHolder(t *testing.T) {
	l, _ := newLedger(t)
	if _, err := l.Initialize(context.Background(), "", types.NewBalance(1)); !errors.Is(err, tally.ErrInvalidAccount) {
		t.Errorf("err = %v, want ErrInvalidAccount", err)
	}
}

func TestNotInitialized(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)

	if _, err := l.TotalSupply(ctx); !errors.Is(err, tally.ErrNotInitialized) {
		t.Errorf("TotalSupply: err = %v, want ErrNotInitialized", err)
	}
	if _, err := l.Transfer(ctx, "alice", "bob", types.NewBalance(0)); !errors.Is(err, tally.ErrNotInitialized) {
		t.Errorf("Transfer: err = %v, want ErrNotInitialized", err)
	}
	if _, err := l.Audit(ctx); !tally.IsNotFound(err) {
		t.Errorf("Audit: err = %v, want not found", err)
	}
	// Reads of balances need no supply.
	if got := balanceOf(t, l, "alice"); !got.IsZero() {
		t.Errorf("BalanceOf = %s, want 0", got)
	}
}

func TestTransfer(t *testing.T) {
	tests := []struct {
		name     string
		caller   account.ID
		receiver account.ID
		amount   uint64
		wantErr  error
		want     map[account.ID]uint64
	}{
		{
			name: "simple", caller: "firas.testnet", receiver: "bob.testnet", amount: 10,
			want: map[account.ID]uint64{"firas.testnet": 90, "bob.testnet": 10},
		},
		{
			name: "whole balance", caller: "firas.testnet", receiver: "bob.testnet", amount: 100,
			want: map[account.ID]uint64{"firas.testnet": 0, "bob.testnet": 100},
		},
		{
			name: "insufficient", caller: "firas.testnet", receiver: "bob.testnet", amount: 101,
			wantErr: tally.ErrInsufficientFunds,
			want:    map[account.ID]uint64{"firas.testnet": 100, "bob.testnet": 0},
		},
		{
			name: "unknown sender", caller: "ghost", receiver: "bob.testnet", amount: 1,
			wantErr: tally.ErrInsufficientFunds,
			want:    map[account.ID]uint64{"firas.testnet": 100, "ghost": 0, "bob.testnet": 0},
		},
		{
			name: "zero amount", caller: "firas.testnet", receiver: "bob.testnet", amount: 0,
			want: map[account.ID]uint64{"firas.testnet": 100, "bob.testnet": 0},
		},
		{
			name: "zero from unknown sender", caller: "ghost", receiver: "bob.testnet", amount: 0,
			want: map[account.ID]uint64{"ghost": 0, "bob.testnet": 0},
		},
		{
			name: "self", caller: "firas.testnet", receiver: "firas.testnet", amount: 30,
			want: map[account.ID]uint64{"firas.testnet": 100},
		},
		{
			name: "self over balance", caller: "firas.testnet", receiver: "firas.testnet", amount: 101,
			wantErr: tally.ErrInsufficientFunds,
			want:    map[account.ID]uint64{"firas.testnet": 100},
		},
		{
			name: "empty receiver", caller: "firas.testnet", receiver: "", amount: 1,
			wantErr: tally.ErrInvalidAccount,
			want:    map[account.ID]uint64{"firas.testnet": 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newInitialized(t, "firas.testnet", 100)

			receipt, err := l.Transfer(context.Background(), tt.caller, tt.receiver, types.NewBalance(tt.amount))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Transfer() err = %v, want %v", err, tt.wantErr)
				}
				if receipt != nil {
					t.Errorf("receipt = %+v, want nil on error", receipt)
				}
			} else {
				if err != nil {
					t.Fatalf("Transfer() err = %v", err)
				}
				if receipt.Sender != tt.caller || receipt.Receiver != tt.receiver ||
					!receipt.Amount.Equal(types.NewBalance(tt.amount)) {
					t.Errorf("receipt = %+v", receipt)
				}
				if !receipt.SenderBalance.Equal(types.NewBalance(tt.want[tt.caller])) {
					t.Errorf("receipt.SenderBalance = %s, want %d", receipt.SenderBalance, tt.want[tt.caller])
				}
				if !receipt.ReceiverBalance.Equal(types.NewBalance(tt.want[tt.receiver])) {
					t.Errorf("receipt.ReceiverBalance = %s, want %d", receipt.ReceiverBalance, tt.want[tt.receiver])
				}
			}

			assertBalances(t, l, tt.want)
			assertAudited(t, l)
		})
	}
}

func TestInsufficientFundsDetails(t *testing.T) {
	l, _ := newInitialized(t, "alice", 5)

	_, err := l.Transfer(context.Background(), "alice", "bob", types.NewBalance(6))

	var ife *tally.InsufficientFundsError
	if !errors.As(err, &ife) {
		t.Fatalf("err = %v, want *InsufficientFundsError", err)
	}
	if ife.Account != "alice" || !ife.Balance.Equal(types.NewBalance(5)) || !ife.Requested.Equal(types.NewBalance(6)) {
		t.Errorf("details = %+v", ife)
	}
	if tally.IsContractViolation(err) {
		t.Error("insufficient funds reported as contract violation")
	}
}

func TestNoOpTransfersWriteNothing(t *testing.T) {
	ctx := context.Background()
	l, _ := newInitialized(t, "alice", 10)

	if _, err := l.Transfer(ctx, "alice", "bob", types.NewBalance(0)); err != nil {
		t.Fatalf("zero Transfer: %v", err)
	}
	if _, err := l.Transfer(ctx, "alice", "alice", types.NewBalance(10)); err != nil {
		t.Fatalf("self Transfer: %v", err)
	}

	accounts, err := l.Accounts(ctx, account.ListOpts{})
	if err != nil {
		t.Fatalf("Accounts: %v", err)
	}
	if len(accounts) != 1 || accounts[0].ID != "alice" {
		t.Errorf("accounts = %+v, want only alice", accounts)
	}
}

func TestTransferPreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	l, _ := newInitialized(t, "alice", 10)

	before, _ := l.Accounts(ctx, account.ListOpts{})
	created := before[0].CreatedAt

	time.Sleep(2 * time.Millisecond)
	if _, err := l.Transfer(ctx, "alice", "bob", types.NewBalance(1)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	after, _ := l.Accounts(ctx, account.ListOpts{})
	if !after[0].CreatedAt.Equal(created) {
		t.Errorf("alice CreatedAt changed: %v -> %v", created, after[0].CreatedAt)
	}
	if !after[0].UpdatedAt.After(created) {
		t.Errorf("alice UpdatedAt = %v, want after %v", after[0].UpdatedAt, created)
	}
}

func TestMaxSupply(t *testing.T) {
	ctx := context.Background()
	l, _ := newLedger(t)

	if _, err := l.Initialize(ctx, "alice", types.MaxBalance()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := l.Transfer(ctx, "alice", "bob", types.MaxBalance()); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if got := balanceOf(t, l, "bob"); !got.Equal(types.MaxBalance()) {
		t.Errorf("bob = %s, want max", got)
	}
	assertAudited(t, l)
}

func TestCreditOverflowIsContractViolation(t *testing.T) {
	ctx := context.Background()
	l, s := newInitialized(t, "alice", 10)

	// Break conservation behind the ledger's back.
	if err := s.PutAccounts(ctx, account.New("bob", types.MaxBalance())); err != nil {
		t.Fatalf("PutAccounts: %v", err)
	}

	_, err := l.Transfer(ctx, "alice", "bob", types.NewBalance(1))
	if !errors.Is(err, tally.ErrArithmeticOverflow) {
		t.Fatalf("err = %v, want ErrArithmeticOverflow", err)
	}
	if !tally.IsContractViolation(err) {
		t.Error("overflow not reported as contract violation")
	}

	if got := balanceOf(t, l, "alice"); !got.Equal(types.NewBalance(10)) {
		t.Errorf("alice = %s after rejected transfer, want 10", got)
	}
	if got := balanceOf(t, l, "bob"); !got.Equal(types.MaxBalance()) {
		t.Errorf("bob = %s after rejected transfer, want max", got)
	}

	report, err := l.Audit(ctx)
	if !errors.Is(err, tally.ErrConservationViolated) {
		t.Fatalf("Audit err = %v, want ErrConservationViolated", err)
	}
	if report == nil || report.Balanced || report.Accounts != 2 {
		t.Errorf("report = %+v", report)
	}
}

func TestSettle(t *testing.T) {
	top := types.MaxBalance()
	one := types.NewBalance(1)

	tests := []struct {
		name                   string
		sender, receiver       account.ID
		senderBal, receiverBal types.Balance
		amount                 types.Balance
		wantSender, wantRecv   types.Balance
		wantErr                error
	}{
		{"move", "a", "b", types.NewBalance(5), types.NewBalance(1), types.NewBalance(2), types.NewBalance(3), types.NewBalance(3), nil},
		{"self", "a", "a", types.NewBalance(5), types.NewBalance(5), types.NewBalance(5), types.NewBalance(5), types.NewBalance(5), nil},
		{"short", "a", "b", one, types.Balance{}, types.NewBalance(2), types.Balance{}, types.Balance{}, tally.ErrInsufficientFunds},
		{"overflow", "a", "b", one, top, one, types.Balance{}, types.Balance{}, tally.ErrArithmeticOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSender, gotRecv, err := tally.Settle(tt.sender, tt.receiver, tt.senderBal, tt.receiverBal, tt.amount)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("err = %v", err)
			}
			if !gotSender.Equal(tt.wantSender) || !gotRecv.Equal(tt.wantRecv) {
				t.Errorf("Settle() = (%s, %s), want (%s, %s)", gotSender, gotRecv, tt.wantSender, tt.wantRecv)
			}
		})
	}
}

func TestRandomTransfersConserveSupply(t *testing.T) {
	ctx := context.Background()
	const total = 1_000
	l, _ := newInitialized(t, "a0", total)

	holders := []account.ID{"a0", "a1", "a2", "a3", "a4", "a5"}
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 2_000; i++ {
		from := holders[rng.IntN(len(holders))]
		to := holders[rng.IntN(len(holders))]
		amount := types.NewBalance(uint64(rng.IntN(total / 4)))

		before := balanceOf(t, l, from)
		_, err := l.Transfer(ctx, from, to, amount)
		switch {
		case err == nil:
		case tally.IsInsufficientFunds(err):
			if !before.LessThan(amount) {
				t.Fatalf("step %d: rejected %s from %s holding %s", i, amount, from, before)
			}
			if after := balanceOf(t, l, from); !after.Equal(before) {
				t.Fatalf("step %d: rejected transfer changed %s: %s -> %s", i, from, before, after)
			}
		default:
			t.Fatalf("step %d: Transfer: %v", i, err)
		}

		if i%100 == 0 {
			assertAudited(t, l)
		}
	}

	report := assertAudited(t, l)
	if report.Sum.Int64() != total {
		t.Errorf("Sum = %s, want %d", report.Sum, total)
	}
}

func TestConcurrentTransfers(t *testing.T) {
	ctx := context.Background()
	l, _ := newInitialized(t, "bank", 10_000)

	holders := []account.ID{"bank", "a", "b", "c"}
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(seed, seed+1))
			for i := 0; i < 200; i++ {
				from := holders[rng.IntN(len(holders))]
				to := holders[rng.IntN(len(holders))]
				_, err := l.Transfer(ctx, from, to, types.NewBalance(uint64(rng.IntN(500))))
				if err != nil && !tally.IsInsufficientFunds(err) {
					t.Errorf("Transfer: %v", err)
					return
				}
			}
		}(uint64(w))
	}
	wg.Wait()

	assertAudited(t, l)
}

func TestAuditPaging(t *testing.T) {
	ctx := context.Background()
	l, _ := newInitialized(t, "bank", 2_000)

	for i := 0; i < 1_200; i++ {
		to := account.ID("acct-" + strconv.Itoa(i))
		if _, err := l.Transfer(ctx, "bank", to, types.NewBalance(1)); err != nil {
			t.Fatalf("Transfer %d: %v", i, err)
		}
	}

	report := assertAudited(t, l)
	if report.Accounts != 1_201 {
		t.Errorf("Accounts = %d, want 1201", report.Accounts)
	}
}

func TestStoppedLedger(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	l := tally.New(s, tally.WithLogger(quietLogger()))
	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := l.BalanceOf(ctx, "alice"); !errors.Is(err, tally.ErrStoreClosed) {
		t.Errorf("BalanceOf after Stop: err = %v, want ErrStoreClosed", err)
	}
}

// ──────────────────────────────────────────────────
// Plugins
// ──────────────────────────────────────────────────

type recordingPlugin struct {
	mu          sync.Mutex
	inits       int
	shutdowns   int
	initialized []*supply.Supply
	completed   []*transfer.Receipt
	rejected    []error
	fail        bool
}

func (p *recordingPlugin) Name() string { return "recording" }

func (p *recordingPlugin) OnInit(context.Context, interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inits++
	return p.err()
}

func (p *recordingPlugin) OnShutdown(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdowns++
	return p.err()
}

func (p *recordingPlugin) OnLedgerInitialized(_ context.Context, s *supply.Supply) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initialized = append(p.initialized, s)
	return p.err()
}

func (p *recordingPlugin) OnTransferCompleted(_ context.Context, r *transfer.Receipt) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, r)
	return p.err()
}

func (p *recordingPlugin) OnTransferRejected(_ context.Context, _, _ account.ID, _ types.Balance, reason error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rejected = append(p.rejected, reason)
	return p.err()
}

func (p *recordingPlugin) err() error {
	if p.fail {
		return errors.New("plugin failure")
	}
	return nil
}

func TestPluginHooks(t *testing.T) {
	for _, fail := range []bool{false, true} {
		name := "succeeding"
		if fail {
			name = "failing"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			p := &recordingPlugin{fail: fail}
			l := tally.New(memory.New(), tally.WithLogger(quietLogger()), tally.WithPlugin(p))

			if err := l.Start(ctx); err != nil {
				t.Fatalf("Start: %v", err)
			}
			if _, err := l.Initialize(ctx, "alice", types.NewBalance(10)); err != nil {
				t.Fatalf("Initialize: %v", err)
			}
			if _, err := l.Transfer(ctx, "alice", "bob", types.NewBalance(4)); err != nil {
				t.Fatalf("Transfer: %v", err)
			}
			if _, err := l.Transfer(ctx, "bob", "alice", types.NewBalance(5)); !tally.IsInsufficientFunds(err) {
				t.Fatalf("Transfer over balance: err = %v", err)
			}
			if err := l.Stop(); err != nil {
				t.Fatalf("Stop: %v", err)
			}

			p.mu.Lock()
			defer p.mu.Unlock()
			if p.inits != 1 || p.shutdowns != 1 {
				t.Errorf("inits = %d, shutdowns = %d, want 1 each", p.inits, p.shutdowns)
			}
			if len(p.initialized) != 1 || p.initialized[0].InitialHolder != "alice" {
				t.Errorf("initialized = %+v", p.initialized)
			}
			if len(p.completed) != 1 || !p.completed[0].Amount.Equal(types.NewBalance(4)) {
				t.Errorf("completed = %+v", p.completed)
			}
			if len(p.rejected) != 1 || !tally.IsInsufficientFunds(p.rejected[0]) {
				t.Errorf("rejected = %v", p.rejected)
			}
		})
	}
}

type slowPlugin struct{}

func (slowPlugin) Name() string { return "slow" }

func (slowPlugin) OnTransferCompleted(ctx context.Context, _ *transfer.Receipt) error {
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
	}
	return nil
}

func TestSlowPluginDoesNotBlockTransfer(t *testing.T) {
	l, _ := newLedger(t, tally.WithPlugin(slowPlugin{}), tally.WithPluginTimeout(10*time.Millisecond))
	ctx := context.Background()
	if _, err := l.Initialize(ctx, "alice", types.NewBalance(1)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	start := time.Now()
	if _, err := l.Transfer(ctx, "alice", "bob", types.NewBalance(1)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Transfer took %v with a slow plugin", elapsed)
	}
}

// readingPlugin reads the ledger from inside its hooks.
type readingPlugin struct {
	ledger *tally.Ledger

	mu       sync.Mutex
	balances []types.Balance
	errs     []error
}

func (p *readingPlugin) Name() string { return "reading" }

func (p *readingPlugin) read(ctx context.Context, a account.ID) error {
	b, err := p.ledger.BalanceOf(ctx, a)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances = append(p.balances, b)
	p.errs = append(p.errs, err)
	return err
}

func (p *readingPlugin) OnLedgerInitialized(ctx context.Context, s *supply.Supply) error {
	return p.read(ctx, s.InitialHolder)
}

func (p *readingPlugin) OnTransferCompleted(ctx context.Context, r *transfer.Receipt) error {
	return p.read(ctx, r.Receiver)
}

func (p *readingPlugin) OnTransferRejected(ctx context.Context, caller, _ account.ID, _ types.Balance, _ error) error {
	return p.read(ctx, caller)
}

func TestHooksCanReadLedger(t *testing.T) {
	p := &readingPlugin{}
	l, _ := newLedger(t, tally.WithPlugin(p), tally.WithPluginTimeout(time.Second))
	p.ledger = l
	ctx := context.Background()

	start := time.Now()
	if _, err := l.Initialize(ctx, "alice", types.NewBalance(10)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := l.Transfer(ctx, "alice", "bob", types.NewBalance(4)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if _, err := l.Transfer(ctx, "bob", "alice", types.NewBalance(5)); !tally.IsInsufficientFunds(err) {
		t.Fatalf("Transfer over balance: err = %v, want insufficient funds", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("operations took %v with hooks that read the ledger", elapsed)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	want := []uint64{10, 4, 4}
	if len(p.balances) != len(want) {
		t.Fatalf("hooks read %d balances, want %d", len(p.balances), len(want))
	}
	for i, w := range want {
		if p.errs[i] != nil {
			t.Errorf("read %d: %v", i, p.errs[i])
		}
		if !p.balances[i].Equal(types.NewBalance(w)) {
			t.Errorf("read %d = %s, want %d", i, p.balances[i], w)
		}
	}
}
