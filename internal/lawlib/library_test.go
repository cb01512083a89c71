package lawlib

import (
	"sync"
	"testing"

	"github.com/Metatronsdoob369/arbiterOS-legal-confidant/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCorpusLoads(t *testing.T) {
	lib := Default()
	require.NotNil(t, lib)
	assert.GreaterOrEqual(t, lib.Len(), 8)

	keys := lib.Keys()
	for i := 1; i < len(keys); i++ {
		assert.Less(t, keys[i-1], keys[i], "keys must be scanned in sorted order")
	}
}

func TestLookup(t *testing.T) {
	lib := Default()

	tests := []struct {
		name    string
		query   string
		wantKey string
		found   bool
	}{
		{"exact key", "ucc_3_104", "ucc_3_104", true},
		{"upper case", "UCC_3_104", "ucc_3_104", true},
		{"query inside key", "9_108", "ucc_9_108", true},
		{"key inside query", "please cite irc_162 for this", "irc_162", true},
		{"cognovit lookup", "confession_of_judgment", "confession_of_judgment", true},
		{"miss", "ucc_4a_202", "", false},
		{"empty", "", "", false},
		{"blank", "   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := lib.Lookup(tt.query)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.wantKey, got.Key)
				assert.NotEmpty(t, got.Citation)
			} else {
				assert.Equal(t, models.Statute{}, got)
			}
		})
	}
}

func TestLookupFirstMatchWins(t *testing.T) {
	lib, err := New([]models.Statute{
		{Key: "ucc_9_203", Title: "Attachment", Citation: "UCC § 9-203"},
		{Key: "ucc_9_108", Title: "Description", Citation: "UCC § 9-108"},
	})
	require.NoError(t, err)

	got, ok := lib.Lookup("ucc_9")
	require.True(t, ok)
	assert.Equal(t, "ucc_9_108", got.Key)

	all := lib.Search("ucc_9")
	require.Len(t, all, 2)
	assert.Equal(t, "ucc_9_108", all[0].Key)
	assert.Equal(t, "ucc_9_203", all[1].Key)
}

func TestGetIsExact(t *testing.T) {
	lib := Default()

	_, ok := lib.Get("ucc_3")
	assert.False(t, ok)

	s, ok := lib.Get("UCC_3_104")
	require.True(t, ok)
	assert.Equal(t, "UCC § 3-104(a)", s.Citation)
}

func TestNewRejectsBadKeys(t *testing.T) {
	_, err := New([]models.Statute{{Key: ""}})
	assert.Error(t, err)

	_, err = New([]models.Statute{{Key: "a"}, {Key: "A"}})
	assert.Error(t, err)
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("- key: [unterminated"))
	assert.Error(t, err)
}

func TestLookupConcurrentReaders(t *testing.T) {
	lib := Default()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, ok := lib.Lookup("UCC_3_104"); !ok {
					t.Error("lookup miss under concurrency")
					return
				}
			}
		}()
	}
	wg.Wait()
}
