package github

import "testing"

func TestParseRepoFromRemote(t *testing.T) {
	tests := []struct {
		name      string
		remote    string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{"SSH", "git@github.com:acme/widgets.git", "acme", "widgets", false},
		{"SSHURL", "ssh://git@github.com/acme/widgets.git", "acme", "widgets", false},
		{"HTTPS", "https://github.com/acme/widgets.git", "acme", "widgets", false},
		{"HTTPSNoSuffix", "https://github.com/acme/widgets\n", "acme", "widgets", false},
		{"TooDeep", "https://github.com/acme/widgets/extra", "", "", true},
		{"OtherHost", "https://gitlab.com/acme/widgets.git", "", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			owner, repo, err := ParseRepoFromRemote(tc.remote)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.remote)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRepoFromRemote(%q) failed: %v", tc.remote, err)
			}
			if owner != tc.wantOwner || repo != tc.wantRepo {
				t.Errorf("expected %s/%s, got %s/%s", tc.wantOwner, tc.wantRepo, owner, repo)
			}
		})
	}
}

func TestParseRepository(t *testing.T) {
	owner, repo, err := ParseRepository("acme/widgets")
	if err != nil {
		t.Fatalf("ParseRepository failed: %v", err)
	}
	if owner != "acme" || repo != "widgets" {
		t.Errorf("expected acme/widgets, got %s/%s", owner, repo)
	}

	for _, bad := range []string{"", "acme", "/widgets", "acme/", "a/b/c"} {
		if _, _, err := ParseRepository(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
