package discovery

import "testing"

func TestIsOfInterest(t *testing.T) {
	tests := []struct {
		name   string
		from   string
		filter []string
		role   string
		want   bool
	}{
		{name: "own message", from: "self", want: false},
		{name: "own message even when filter matches", from: "self", filter: []string{"r1"}, role: "r1", want: false},
		{name: "unfiltered, no role", from: "peer", want: true},
		{name: "unfiltered, with role", from: "peer", role: "r1", want: true},
		{name: "empty filter list", from: "peer", filter: []string{}, role: "r1", want: true},
		{name: "filtered, no role", from: "peer", filter: []string{"r1"}, want: true},
		{name: "filtered, matching role", from: "peer", filter: []string{"r1"}, role: "r1", want: true},
		{name: "filtered, role later in list", from: "peer", filter: []string{"r0", "r1"}, role: "r1", want: true},
		{name: "filtered, other role", from: "peer", filter: []string{"r1"}, role: "r2", want: false},
		{name: "role match is exact", from: "peer", filter: []string{"R1"}, role: "r1", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := &Envelope{Type: TypeBroadcast, From: tt.from, Filter: tt.filter}
			self := Identity{ID: "self", Role: tt.role}
			if got := IsOfInterest(env, self); got != tt.want {
				t.Errorf("IsOfInterest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsOfInterestSameForPing(t *testing.T) {
	self := Identity{ID: "self", Role: "r2"}
	for _, msgType := range []string{TypePing, TypeBroadcast} {
		env := &Envelope{Type: msgType, From: "peer", Filter: []string{"r1"}}
		if IsOfInterest(env, self) {
			t.Errorf("%s with non-matching filter should not be of interest", msgType)
		}
	}
}
