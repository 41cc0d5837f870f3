package ledger_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ucfagri/sambot/internal/ledger"
)

func TestFingerprintIsStable(t *testing.T) {
	a := ledger.Fingerprint("Farm and City", "15/05/2025", "84.50")
	b := ledger.Fingerprint("Farm and City", "15/05/2025", "84.50")
	c := ledger.Fingerprint("Farm and City", "15/05/2025", "84.51")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}

func TestIsUsedChecksEveryStatus(t *testing.T) {
	svc := ledger.NewService(nil, t.TempDir())
	fp := ledger.Fingerprint("Agrimart", "01/05/2025", "12.00")

	_, err := svc.Record(ledger.Document{Fingerprint: fp, Status: ledger.StatusPending})
	require.NoError(t, err)

	assert.True(t, svc.IsUsed(fp))
	assert.False(t, svc.IsUsed(ledger.Fingerprint("Agrimart", "02/05/2025", "12.00")))
	assert.False(t, svc.IsUsed(""))
}

func TestCheckAndRecordRejectsReplay(t *testing.T) {
	svc := ledger.NewService(nil, t.TempDir())
	fp := ledger.Fingerprint("Agrimart", "01/05/2025", "12.00")

	first, err := svc.CheckAndRecord(ledger.Document{Fingerprint: fp, Status: ledger.StatusApproved})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = svc.CheckAndRecord(ledger.Document{Fingerprint: fp, Status: ledger.StatusApproved})
	require.ErrorIs(t, err, ledger.ErrReceiptUsed)
	assert.Len(t, svc.All(), 1)
}

func TestConcurrentDuplicatesCannotBothPass(t *testing.T) {
	svc := ledger.NewService(nil, t.TempDir())
	fp := ledger.Fingerprint("Agrimart", "01/05/2025", "12.00")

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CheckAndRecord(ledger.Document{Fingerprint: fp, Status: ledger.StatusApproved})
			if err == nil {
				granted.Add(1)
			} else if !errors.Is(err, ledger.ErrReceiptUsed) {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), granted.Load())
	assert.Len(t, svc.All(), 1)
}

func TestCountByStatus(t *testing.T) {
	svc := ledger.NewService(nil, t.TempDir())
	_, err := svc.Record(ledger.Document{Status: ledger.StatusApproved})
	require.NoError(t, err)
	_, err = svc.Record(ledger.Document{Status: ledger.StatusPending})
	require.NoError(t, err)
	_, err = svc.Record(ledger.Document{Status: ledger.StatusPending})
	require.NoError(t, err)

	counts := svc.CountByStatus()
	assert.Equal(t, 1, counts[ledger.StatusApproved])
	assert.Equal(t, 2, counts[ledger.StatusPending])
}
