package affordance

import "testing"

func TestIndicatorNotifiesRegisteredHandlers(t *testing.T) {
	t.Parallel()

	ind := NewIndicator()
	shows, hides := 0, 0
	ind.Register(HandlerFuncs{
		OnShow: func() { shows++ },
		OnHide: func() { hides++ },
	})

	ind.Show()
	ind.Hide()

	if shows != 1 || hides != 1 {
		t.Fatalf("expected one show and one hide, got %d/%d", shows, hides)
	}
}

func TestIndicatorNestsShows(t *testing.T) {
	t.Parallel()

	ind := NewIndicator()
	shows, hides := 0, 0
	ind.Register(HandlerFuncs{
		OnShow: func() { shows++ },
		OnHide: func() { hides++ },
	})

	ind.Show()
	ind.Show()
	ind.Hide()
	if hides != 0 {
		t.Fatal("indicator hid while an operation was still outstanding")
	}
	if !ind.Visible() {
		t.Fatal("indicator should still be visible")
	}

	ind.Hide()
	if shows != 1 || hides != 1 {
		t.Fatalf("expected one show and one hide, got %d/%d", shows, hides)
	}
	if ind.Visible() {
		t.Fatal("indicator should be hidden")
	}
}

func TestIndicatorHideWithoutShowIsSafe(t *testing.T) {
	t.Parallel()

	ind := NewIndicator()
	ind.Register(nil)
	ind.Hide()
	if ind.Visible() {
		t.Fatal("unexpected visibility")
	}
}
