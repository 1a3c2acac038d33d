package services

import (
	"errors"
	"testing"
)

func TestIsArithmetic(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"2+3", true},
		{" 7 * 8 = ", true},
		{"(1+2)*3", true},
		{"10 / 4", true},
		{"-3+5", true},
		{"12", false},
		{"12=", false},
		{"2+", false},
		{"what is 2+3", false},
		{"2+alert(1)", false},
		{"2**3+1", true},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsArithmetic(tt.message); got != tt.want {
			t.Errorf("IsArithmetic(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestEvaluateArithmetic(t *testing.T) {
	tests := []struct {
		expr    string
		want    float64
		wantErr error
	}{
		{expr: "2+3*4", want: 14},
		{expr: "(2+3)*4", want: 20},
		{expr: "10/4", want: 2.5},
		{expr: "7-10", want: -3},
		{expr: "6 * 7 =", want: 42},
		{expr: "2+alert(1)", wantErr: ErrInvalidExpression},
		{expr: "2^3", wantErr: ErrInvalidExpression},
		{expr: "2**3", wantErr: ErrInvalidExpression},
		{expr: "2**3**2", wantErr: ErrInvalidExpression},
		{expr: "2 * * 3", wantErr: ErrInvalidExpression},
		{expr: "2**3+1=", wantErr: ErrInvalidExpression},
		{expr: "", wantErr: ErrInvalidExpression},
		{expr: "1/0", wantErr: ErrUnevaluableExpression},
		{expr: "2+", wantErr: ErrUnevaluableExpression},
		{expr: "(1+2", wantErr: ErrUnevaluableExpression},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := EvaluateArithmetic(tt.expr)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
