package core

import (
	"errors"
	"testing"
)

func TestThresholdConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ThresholdConfig
		wantErr bool
	}{
		{"valid ordering", ThresholdConfig{Pass: 0.8, Flag: 0.5, Block: 0.2}, false},
		{"equal flag and pass", ThresholdConfig{Pass: 0.5, Flag: 0.5, Block: 0.2}, true},
		{"equal block and flag", ThresholdConfig{Pass: 0.8, Flag: 0.2, Block: 0.2}, true},
		{"inverted", ThresholdConfig{Pass: 0.2, Flag: 0.5, Block: 0.8}, true},
		{"all zero", ThresholdConfig{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var cfgErr *ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Errorf("expected ConfigurationError, got %T", err)
				}
			}
		})
	}
}

func TestBlockError_CarriesResult(t *testing.T) {
	conf := 0.1
	res := &VexResult{ExecutionID: "exec-1", Action: ActionBlock, Confidence: &conf}

	var err error = &BlockError{Result: res}

	var blockErr *BlockError
	if !errors.As(err, &blockErr) {
		t.Fatal("BlockError should be matchable with errors.As")
	}
	if blockErr.Result.Action != ActionBlock {
		t.Errorf("attached action = %v", blockErr.Result.Action)
	}
	if *blockErr.Result.Confidence != 0.1 {
		t.Errorf("attached confidence = %v", *blockErr.Result.Confidence)
	}
	if err.Error() == "" {
		t.Error("error message should not be empty")
	}
}

func TestAction_Valid(t *testing.T) {
	for _, a := range []Action{ActionPass, ActionFlag, ActionBlock} {
		if !a.Valid() {
			t.Errorf("%q should be valid", a)
		}
	}
	if Action("reject").Valid() {
		t.Error("unknown action should be invalid")
	}
}
