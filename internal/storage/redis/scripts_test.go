package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// setupTestRedis creates a miniredis instance for testing Lua scripts
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr
}

func TestPutUsageScript(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer client.Close()

	ctx := context.Background()
	k := keys{prefix: "timeleak"}

	tests := []struct {
		name        string
		phoneNumber string
		document    string
		wantMembers int
	}{
		{
			name:        "first document",
			phoneNumber: "+15551234567",
			document:    `{"totalScreenTime":60000}`,
			wantMembers: 1,
		},
		{
			name:        "replace document",
			phoneNumber: "+15551234567",
			document:    `{"totalScreenTime":120000}`,
			wantMembers: 1,
		},
		{
			name:        "second number",
			phoneNumber: "+442079460958",
			document:    `{"totalScreenTime":30000}`,
			wantMembers: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := client.Eval(ctx, putUsageScript, []string{
				k.usage(tt.phoneNumber),
				k.usageIndex(),
			}, tt.phoneNumber, tt.document)

			if result.Err() != nil {
				t.Fatalf("Script execution failed: %v", result.Err())
			}

			got, err := mr.Get("timeleak:usage:" + tt.phoneNumber)
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			if got != tt.document {
				t.Errorf("Expected document %s, got %s", tt.document, got)
			}

			members, err := mr.Members("timeleak:usage:index")
			if err != nil {
				t.Fatalf("Members failed: %v", err)
			}
			if len(members) != tt.wantMembers {
				t.Errorf("Expected %d index members, got %d", tt.wantMembers, len(members))
			}
		})
	}
}
