package duplication

import "testing"

func TestDesktopOutputsStopsAtFirstDetached(t *testing.T) {
	w := newFakeWorld(t, 0x10, []*fakeOutputSpec{
		{name: "a", monitor: 0x10, texW: 1, texH: 1},
		{name: "b", detached: true, texW: 1, texH: 1},
		{name: "c", monitor: 0x30, texW: 1, texH: 1},
	})
	f, _ := w.driver().NewFactory()
	a, err := f.EnumAdapter(0)
	if err != nil {
		t.Fatalf("EnumAdapter: %v", err)
	}

	outs := desktopOutputs(a, discardLogger())
	if len(outs) != 1 || outs[0].desc.DeviceName != "a" {
		t.Fatalf("desktopOutputs = %+v, want only a", outs)
	}

	for _, o := range outs {
		o.output.Release()
	}
	a.Release()
	f.Release()
	w.assertNoLeaks()
}

func TestAdaptersStopsAtNotFound(t *testing.T) {
	w := newFakeWorld(t, 0, nil, nil, nil)
	f, _ := w.driver().NewFactory()
	n := 0
	for _, a := range adapters(f, discardLogger()) {
		n++
		a.Release()
	}
	if n != 3 {
		t.Fatalf("visited %d adapters, want 3", n)
	}

	// Breaking early leaves the remaining adapters unenumerated.
	for _, a := range adapters(f, discardLogger()) {
		a.Release()
		break
	}
	f.Release()
	w.assertNoLeaks()
}

func TestSelectTarget(t *testing.T) {
	// true marks the primary output.
	discovered := []bool{false, true, false, false}
	primary := func(p bool) bool { return p }

	tests := []struct {
		index int
		want  int
		ok    bool
	}{
		{0, 1, true},
		{1, 0, true},
		{2, 2, true},
		{3, 3, true},
		{4, -1, false},
		{-1, -1, false},
	}
	for _, tt := range tests {
		got, ok := selectTarget(discovered, tt.index, primary)
		if got != tt.want || ok != tt.ok {
			t.Errorf("selectTarget(%d) = %d, %v; want %d, %v", tt.index, got, ok, tt.want, tt.ok)
		}
	}

	if _, ok := selectTarget([]bool{false, false}, 0, primary); ok {
		t.Error("index 0 without a primary output should not match")
	}
}

func TestListOutputs(t *testing.T) {
	w := twoAdapters(t)
	w.adapters[1][0].rotation = Rotation90

	infos, err := ListOutputs(w.driver(), w.windowing(), discardLogger())
	if err != nil {
		t.Fatalf("ListOutputs: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("got %d outputs, want 3", len(infos))
	}

	want := []struct {
		adapter, output, sourceIndex int
		primary                      bool
	}{
		{0, 0, 1, false},
		{0, 1, 0, true},
		{1, 0, 2, false},
	}
	for i, wnt := range want {
		got := infos[i]
		if got.Adapter != wnt.adapter || got.Output != wnt.output || got.SourceIndex != wnt.sourceIndex || got.Primary != wnt.primary {
			t.Errorf("output %d = %+v, want %+v", i, got, wnt)
		}
	}
	if infos[0].Width != 4 || infos[0].Height != 3 {
		t.Errorf("output 0 size = %dx%d, want 4x3", infos[0].Width, infos[0].Height)
	}
	if infos[2].Rotation != Rotation90 {
		t.Errorf("output 2 rotation = %v", infos[2].Rotation)
	}
	w.assertNoLeaks()
}
