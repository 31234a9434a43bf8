package approval

import "testing"

// storeFactories lets the conformance suite run identically over both
// implementations.
func storeFactories(t *testing.T) map[string]func() Store {
	return map[string]func() Store{
		"memory": func() Store { return NewMemoryStore() },
		"sqlite": func() Store {
			s, err := NewSQLiteStore(t.TempDir())
			if err != nil {
				t.Fatalf("failed to open sqlite store: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestDefaultPolicyIsPrompt(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			p, err := store.PolicyFor("get_weather")
			if err != nil {
				t.Fatal(err)
			}
			if p != PolicyPrompt {
				t.Errorf("policy = %v, want prompt", p)
			}
		})
	}
}

func TestAlwaysPersistsPerTool(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			if err := store.Apply("get_weather", DecisionAlways); err != nil {
				t.Fatal(err)
			}

			p, _ := store.PolicyFor("get_weather")
			if p != PolicyAlways {
				t.Errorf("approved tool policy = %v, want always", p)
			}
			other, _ := store.PolicyFor("delete_file")
			if other != PolicyPrompt {
				t.Errorf("unrelated tool policy = %v, want prompt", other)
			}
		})
	}
}

func TestYoloOverridesEverything(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			if err := store.SetYolo(true); err != nil {
				t.Fatal(err)
			}

			p, _ := store.PolicyFor("anything")
			if p != PolicyYolo {
				t.Errorf("policy under yolo = %v", p)
			}
		})
	}
}

func TestYoloDoesNotClearPersistedApprovals(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			if err := store.Apply("read_file", DecisionAlways); err != nil {
				t.Fatal(err)
			}
			if err := store.SetYolo(true); err != nil {
				t.Fatal(err)
			}
			if err := store.SetYolo(false); err != nil {
				t.Fatal(err)
			}

			p, _ := store.PolicyFor("read_file")
			if p != PolicyAlways {
				t.Errorf("persisted approval lost after yolo toggle: %v", p)
			}
		})
	}
}

func TestAlwaysClearsYolo(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			store := factory()
			if err := store.SetYolo(true); err != nil {
				t.Fatal(err)
			}
			if err := store.Apply("read_file", DecisionAlways); err != nil {
				t.Fatal(err)
			}

			yolo, _ := store.Yolo()
			if yolo {
				t.Error("yolo still set after a per-tool always decision")
			}
			p, _ := store.PolicyFor("read_file")
			if p != PolicyAlways {
				t.Errorf("policy = %v", p)
			}
		})
	}
}

func TestOnceAndDenyDoNotPersistButClearYolo(t *testing.T) {
	for name, factory := range storeFactories(t) {
		for _, d := range []Decision{DecisionOnce, DecisionDeny} {
			t.Run(name+"/"+decisionName(d), func(t *testing.T) {
				store := factory()
				if err := store.SetYolo(true); err != nil {
					t.Fatal(err)
				}
				if err := store.Apply("run_command", d); err != nil {
					t.Fatal(err)
				}

				yolo, _ := store.Yolo()
				if yolo {
					t.Error("yolo survived an explicit per-tool decision")
				}
				p, _ := store.PolicyFor("run_command")
				if p != PolicyPrompt {
					t.Errorf("policy = %v, want prompt (nothing persisted)", p)
				}
			})
		}
	}
}

func TestSQLiteStoreReopens(t *testing.T) {
	dir := t.TempDir()

	store, err := NewSQLiteStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Apply("read_file", DecisionAlways); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewSQLiteStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	p, err := reopened.PolicyFor("read_file")
	if err != nil {
		t.Fatal(err)
	}
	if p != PolicyAlways {
		t.Errorf("policy after reopen = %v, want always", p)
	}
}

func decisionName(d Decision) string {
	switch d {
	case DecisionOnce:
		return "once"
	case DecisionAlways:
		return "always"
	default:
		return "deny"
	}
}
