package models

import (
	"testing"
	"time"
)

func TestTaskValidation_RequiredFields(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		task    Task
		wantErr bool
		errMsg  string
	}{
		{
			name:    "empty text should fail",
			task:    Task{ID: 1, Text: "", Priority: PriorityMedium, CreatedAt: now},
			wantErr: true,
			errMsg:  "text is required",
		},
		{
			name:    "whitespace text should fail",
			task:    Task{ID: 1, Text: "   ", Priority: PriorityMedium, CreatedAt: now},
			wantErr: true,
			errMsg:  "text is required",
		},
		{
			name:    "zero id should fail",
			task:    Task{ID: 0, Text: "Buy milk", Priority: PriorityMedium, CreatedAt: now},
			wantErr: true,
			errMsg:  "id must be a positive integer",
		},
		{
			name:    "id above the safe integer range should fail",
			task:    Task{ID: MaxID + 1, Text: "Buy milk", Priority: PriorityMedium, CreatedAt: now},
			wantErr: true,
			errMsg:  "id must not exceed 9007199254740991",
		},
		{
			name:    "largest safe id should pass",
			task:    Task{ID: MaxID, Text: "Buy milk", Priority: PriorityMedium, CreatedAt: now},
			wantErr: false,
		},
		{
			name:    "missing createdAt should fail",
			task:    Task{ID: 1, Text: "Buy milk", Priority: PriorityMedium},
			wantErr: true,
			errMsg:  "createdAt is required",
		},
		{
			name:    "valid task should pass",
			task:    Task{ID: 1, Text: "Buy milk", Priority: PriorityMedium, CreatedAt: now},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				} else if err.Error() != tt.errMsg {
					t.Errorf("expected error %q, got %q", tt.errMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestTaskValidation_PriorityValues(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		priority Priority
		wantErr  bool
	}{
		{name: "high priority is valid", priority: PriorityHigh},
		{name: "medium priority is valid", priority: PriorityMedium},
		{name: "low priority is valid", priority: PriorityLow},
		{name: "empty priority should fail", priority: "", wantErr: true},
		{name: "invalid priority should fail", priority: "urgent", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := Task{ID: 1, Text: "Test", Priority: tt.priority, CreatedAt: now}
			err := task.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if err.Error() != "priority must be 'high', 'medium', or 'low'" {
					t.Errorf("unexpected error message: %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTaskValidation_CompletedAtInvariant(t *testing.T) {
	now := time.Now()

	completedWithoutTime := Task{ID: 1, Text: "Task", Priority: PriorityLow, CreatedAt: now, Completed: true}
	if err := completedWithoutTime.Validate(); err == nil {
		t.Error("expected error for completed task without completedAt")
	}

	pendingWithTime := Task{ID: 1, Text: "Task", Priority: PriorityLow, CreatedAt: now, CompletedAt: &now}
	if err := pendingWithTime.Validate(); err == nil {
		t.Error("expected error for pending task with completedAt")
	}

	done := Task{ID: 1, Text: "Task", Priority: PriorityLow, CreatedAt: now, Completed: true, CompletedAt: &now}
	if err := done.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
	}{
		{"high", PriorityHigh},
		{"HIGH", PriorityHigh},
		{" low ", PriorityLow},
		{"medium", PriorityMedium},
		{"", PriorityMedium},
		{"urgent", PriorityMedium},
	}

	for _, tt := range tests {
		if got := ParsePriority(tt.in); got != tt.want {
			t.Errorf("ParsePriority(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    Filter
		wantErr bool
	}{
		{in: "", want: FilterAll},
		{in: "all", want: FilterAll},
		{in: "pending", want: FilterPending},
		{in: "Completed", want: FilterCompleted},
		{in: "high", want: FilterHigh},
		{in: "high-priority", want: FilterHigh},
		{in: "overdue", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFilter(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFilter_Match(t *testing.T) {
	pendingHigh := Task{Priority: PriorityHigh}
	doneLow := Task{Priority: PriorityLow, Completed: true}

	tests := []struct {
		name     string
		filter   Filter
		task     Task
		expected bool
	}{
		{"all matches pending", FilterAll, pendingHigh, true},
		{"all matches completed", FilterAll, doneLow, true},
		{"pending matches pending", FilterPending, pendingHigh, true},
		{"pending skips completed", FilterPending, doneLow, false},
		{"completed matches completed", FilterCompleted, doneLow, true},
		{"completed skips pending", FilterCompleted, pendingHigh, false},
		{"high matches high", FilterHigh, pendingHigh, true},
		{"high skips low", FilterHigh, doneLow, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tt.task); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
