package log

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestGetLogger(t *testing.T) {
	ctx := context.Background()
	if got := G(ctx); got != L {
		t.Errorf("GetLogger() without logger = %v, want L", got)
	}

	entry := L.WithField("app", "demo")
	ctx = WithLogger(ctx, entry)
	if got := G(ctx); got != entry {
		t.Errorf("GetLogger() = %v, want %v", got, entry)
	}
}

func TestSetLevel(t *testing.T) {
	defer L.Logger.SetLevel(logrus.InfoLevel)

	tests := []struct {
		level   string
		want    logrus.Level
		wantErr bool
	}{
		{level: "debug", want: logrus.DebugLevel},
		{level: "warn", want: logrus.WarnLevel},
		{level: "trace", want: logrus.TraceLevel},
		{level: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			err := SetLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetLevel() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && L.Logger.GetLevel() != tt.want {
				t.Errorf("level = %v, want %v", L.Logger.GetLevel(), tt.want)
			}
		})
	}
}
