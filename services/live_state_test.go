package services

import (
	"testing"

	"airguard/models"
)

func TestLiveReadingsEmptyMetricIsBlank(t *testing.T) {
	live := NewLiveReadings()
	if got := live.Get(models.MetricTemperature); got != "" {
		t.Fatalf("unset metric = %q, want empty", got)
	}
}

func TestLiveReadingsSetOverwrites(t *testing.T) {
	live := NewLiveReadings()
	live.Set(models.MetricCO, "3.2")
	live.Set(models.MetricCO, "4.1")

	if got := live.Get(models.MetricCO); got != "4.1" {
		t.Fatalf("Get = %q, want latest write", got)
	}
	if got := live.Get(models.MetricHumidity); got != "" {
		t.Fatalf("untouched metric = %q, want empty", got)
	}
}

func TestLiveReadingsNotifiesSubscribers(t *testing.T) {
	live := NewLiveReadings()

	type event struct {
		metric models.Metric
		value  string
	}
	var seen []event
	live.Subscribe(func(metric models.Metric, value string) {
		seen = append(seen, event{metric, value})
	})

	live.Set(models.MetricTVOC, "120")
	live.Set(models.MetricFlammable, "85")

	want := []event{
		{models.MetricTVOC, "120"},
		{models.MetricFlammable, "85"},
	}
	if len(seen) != len(want) {
		t.Fatalf("got %d notifications, want %d", len(seen), len(want))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("notification %d = %+v, want %+v", i, seen[i], want[i])
		}
	}
}

func TestLiveReadingsLateSubscriberMissesEarlierWrites(t *testing.T) {
	live := NewLiveReadings()
	live.Set(models.MetricTemperature, "21.5")

	var calls int
	live.Subscribe(func(models.Metric, string) { calls++ })
	if calls != 0 {
		t.Fatal("subscriber must not be replayed past writes")
	}

	live.Set(models.MetricTemperature, "22.0")
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}
