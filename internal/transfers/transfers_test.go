package transfers

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tysonq/taxmate/internal/domain"
)

func txn(owner, desc, amount string, day int, cats ...string) domain.Transaction {
	return domain.Transaction{
		Date:        time.Date(2025, time.March, day, 0, 0, 0, 0, time.UTC),
		Amount:      domain.NewMoney(decimal.RequireFromString(amount), domain.AUD),
		Description: desc,
		Owner:       owner,
		Categories:  cats,
	}
}

func TestIsTransfer(t *testing.T) {
	assert.True(t, IsTransfer(txn("alex", "transfer to sam", "100", 1, "transfers")))
	assert.False(t, IsTransfer(txn("alex", "woolworths", "-50", 1, "groceries")))
	assert.False(t, IsTransfer(txn("alex", "transfer to sam", "100", 1)))
}

func TestExtractRecipient(t *testing.T) {
	tests := []struct {
		desc string
		want string
	}{
		{"Transfer to Sam Nguyen", "sam nguyen"},
		{"transfer to sam", "sam"},
		{"NetBank transfer to sam", "sam"},
		{"direct credit 141000 sam nguyen", "sam nguyen"},
		{"transfer to other bank account", ""},
		{"transfer to savings", ""},
		{"direct credit 99", ""},
		{"woolworths metro", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractRecipient(tt.desc), "desc %q", tt.desc)
	}
}

func TestReconcileGroupsByPair(t *testing.T) {
	txns := []domain.Transaction{
		txn("alex", "transfer to sam", "200", 1, "transfers"),
		txn("alex", "transfer to sam", "300", 10, "transfers"),
		txn("sam", "transfer to alex", "50", 5, "transfers"),
		// Debits and unlabelled rows never reconcile.
		txn("alex", "transfer to sam", "-200", 2, "transfers"),
		txn("alex", "transfer to sam", "400", 3),
	}

	got := Reconcile(txns)
	require.Len(t, got, 2)

	out := got[Pair{From: "alex", To: "sam"}]
	assert.Equal(t, 2, out.TxnCount)
	assert.True(t, out.Amount.Amount.Equal(decimal.NewFromInt(500)), "got %s", out.Amount.Amount)
	assert.Equal(t, 1, out.DateFirst.Day())
	assert.Equal(t, 10, out.DateLast.Day())

	back := got[Pair{From: "sam", To: "alex"}]
	assert.Equal(t, 1, back.TxnCount)
	assert.True(t, back.Amount.Amount.Equal(decimal.NewFromInt(50)))
}

func TestReconcileSkipsUnknownRecipients(t *testing.T) {
	got := Reconcile([]domain.Transaction{
		txn("alex", "transfer to savings", "900", 1, "transfers"),
	})
	assert.Empty(t, got)
}

func TestNetPosition(t *testing.T) {
	transfers := Reconcile([]domain.Transaction{
		txn("alex", "transfer to sam", "500", 1, "transfers"),
		txn("sam", "transfer to alex", "120", 2, "transfers"),
	})

	alex := NetPosition(transfers, "alex")
	assert.True(t, alex.Amount.Equal(decimal.NewFromInt(380)), "got %s", alex.Amount)

	sam := NetPosition(transfers, "sam")
	assert.True(t, sam.Amount.Equal(decimal.NewFromInt(-380)))

	none := NetPosition(transfers, "pat")
	assert.True(t, none.Amount.IsZero())
	assert.Equal(t, domain.AUD, none.Currency)
}

func TestNetPositionEmpty(t *testing.T) {
	got := NetPosition(nil, "alex")
	assert.True(t, got.Amount.IsZero())
	assert.Equal(t, domain.AUD, got.Currency)
}
