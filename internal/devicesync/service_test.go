package devicesync

import (
	"context"
	"errors"
	"testing"
	"time"

	"solar-sync/internal/common/constants"
	"solar-sync/internal/common/paths"
	"solar-sync/internal/mocks"
	"solar-sync/internal/models"
	"solar-sync/internal/store"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	svc       *Service
	store     *store.MemoryStore
	commands  *mocks.MockCommandPublisher
	archive   *mocks.MockCleaningArchive
	telemetry *mocks.MockTelemetryArchive
	logger    *mocks.MockLogger
}

func newTestEnv() *testEnv {
	env := &testEnv{
		store:     store.NewMemoryStore(),
		commands:  mocks.NewMockCommandPublisher(),
		archive:   mocks.NewMockCleaningArchive(),
		telemetry: mocks.NewMockTelemetryArchive(),
		logger:    mocks.NewMockLogger(),
	}
	env.svc = NewService(env.store, env.commands, env.archive, env.telemetry, mocks.NewMockIDGenerator(), env.logger)
	env.svc.SetClock(func() time.Time { return fixedNow })
	return env
}

func (e *testEnv) provision(t *testing.T, info models.DeviceInfo) string {
	t.Helper()
	id, err := e.svc.ProvisionDevice(context.Background(), "user1", info)
	if err != nil {
		t.Fatalf("ProvisionDevice failed: %v", err)
	}
	return id
}

func TestProvisionDevice(t *testing.T) {
	ctx := context.Background()

	t.Run("Read back yields default tree", func(t *testing.T) {
		e := newTestEnv()
		info := models.DeviceInfo{Name: "Roof A", Location: "Seoul", PanelRating: 400}
		id := e.provision(t, info)

		device, err := e.svc.GetDevice(ctx, id)
		if err != nil {
			t.Fatalf("GetDevice failed: %v", err)
		}

		expected := DefaultDeviceTree("user1", info)
		expected.ID = id
		if device.Owner != expected.Owner || device.Info != expected.Info {
			t.Errorf("Expected info %+v, got %+v", expected.Info, device.Info)
		}
		if device.Environment != (models.Environment{}) {
			t.Errorf("Expected zero environment, got %+v", device.Environment)
		}
		if device.PanelParameters != (models.PanelParameters{}) {
			t.Errorf("Expected zero panel parameters, got %+v", device.PanelParameters)
		}
		if device.PanelStatus != expected.PanelStatus {
			t.Errorf("Expected panel status %+v, got %+v", expected.PanelStatus, device.PanelStatus)
		}

		control := device.CleaningControl
		if control.Mode != constants.CleaningModeManual {
			t.Errorf("Expected mode manual, got '%s'", control.Mode)
		}
		if control.Method != constants.CleaningMethodDry {
			t.Errorf("Expected method dry, got '%s'", control.Method)
		}
		if control.Status != constants.CleaningStatusIdle {
			t.Errorf("Expected status idle, got '%s'", control.Status)
		}
		if control.PWMDry != 150 || control.PWMWet != 180 {
			t.Errorf("Expected pwm 150/180, got %d/%d", control.PWMDry, control.PWMWet)
		}
		if control.Trigger != 0 || control.Error != nil {
			t.Errorf("Expected trigger 0 and no error, got %d/%v", control.Trigger, control.Error)
		}
		if control.AutoSettings != expected.CleaningControl.AutoSettings {
			t.Errorf("Expected auto settings %+v, got %+v", expected.CleaningControl.AutoSettings, control.AutoSettings)
		}
		if control.CurrentOperation != (models.CurrentOperation{}) {
			t.Errorf("Expected zero current operation, got %+v", control.CurrentOperation)
		}
	})

	t.Run("Owner reference is written with the device", func(t *testing.T) {
		e := newTestEnv()
		id := e.provision(t, models.DeviceInfo{Name: "Roof B"})

		list, err := e.svc.ListDevices(ctx, "user1")
		if err != nil {
			t.Fatalf("ListDevices failed: %v", err)
		}
		if len(list) != 1 || list[0].ID != id || list[0].Name != "Roof B" {
			t.Errorf("Expected single device '%s', got %+v", id, list)
		}
		if list[0].AddedAt != fixedNow.UnixMilli() {
			t.Errorf("Expected addedAt %d, got %d", fixedNow.UnixMilli(), list[0].AddedAt)
		}
	})

	t.Run("Repeated provisioning creates distinct devices", func(t *testing.T) {
		e := newTestEnv()
		first := e.provision(t, models.DeviceInfo{Name: "Same"})
		second := e.provision(t, models.DeviceInfo{Name: "Same"})
		if first == second {
			t.Errorf("Expected distinct ids, got '%s' twice", first)
		}
	})

	t.Run("Owner is required", func(t *testing.T) {
		e := newTestEnv()
		if _, err := e.svc.ProvisionDevice(ctx, "", models.DeviceInfo{}); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestDeleteDevice(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv()
	id := e.provision(t, models.DeviceInfo{Name: "Roof"})

	t.Run("Other owner is rejected", func(t *testing.T) {
		if err := e.svc.DeleteDevice(ctx, "user2", id); !errors.Is(err, ErrDeviceNotOwned) {
			t.Errorf("Expected ErrDeviceNotOwned, got %v", err)
		}
	})

	t.Run("Owner removes both paths", func(t *testing.T) {
		if err := e.svc.DeleteDevice(ctx, "user1", id); err != nil {
			t.Fatalf("DeleteDevice failed: %v", err)
		}
		if _, err := e.svc.GetDevice(ctx, id); !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Expected ErrDeviceNotFound, got %v", err)
		}
		snap, _ := e.store.Get(ctx, paths.UserDevice("user1", id))
		if snap.Exists {
			t.Errorf("Expected owner reference to be removed")
		}
	})
}

func TestDeviceSettings(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv()
	id := e.provision(t, models.DeviceInfo{Name: "Roof"})

	t.Run("Auto settings keep lastCleaning", func(t *testing.T) {
		e.store.Update(ctx, paths.CleaningControl(id), map[string]interface{}{"autoSettings/lastCleaning": 1234})

		err := e.svc.UpdateAutoSettings(ctx, id, models.AutoSettings{Enabled: true, DustThreshold: 80, Schedule: constants.ScheduleDaily})
		if err != nil {
			t.Fatalf("UpdateAutoSettings failed: %v", err)
		}

		var control models.CleaningControl
		store.GetInto(ctx, e.store, paths.CleaningControl(id), &control)
		if !control.AutoSettings.Enabled || control.AutoSettings.DustThreshold != 80 {
			t.Errorf("Expected enabled with threshold 80, got %+v", control.AutoSettings)
		}
		if control.AutoSettings.LastCleaning != 1234 {
			t.Errorf("Expected lastCleaning 1234, got %d", control.AutoSettings.LastCleaning)
		}
	})

	t.Run("Unknown schedule is rejected", func(t *testing.T) {
		err := e.svc.UpdateAutoSettings(ctx, id, models.AutoSettings{Schedule: "hourly"})
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Patch keeps omitted fields", func(t *testing.T) {
		enabled := false
		if err := e.svc.PatchAutoSettings(ctx, id, models.AutoSettingsPatch{Enabled: &enabled}); err != nil {
			t.Fatalf("PatchAutoSettings failed: %v", err)
		}

		var control models.CleaningControl
		store.GetInto(ctx, e.store, paths.CleaningControl(id), &control)
		if control.AutoSettings.Enabled {
			t.Errorf("Expected auto cleaning disabled")
		}
		if control.AutoSettings.DustThreshold != 80 || control.AutoSettings.Schedule != constants.ScheduleDaily {
			t.Errorf("Expected threshold 80 and daily schedule to be kept, got %+v", control.AutoSettings)
		}
	})

	t.Run("Zero threshold and empty patch are rejected", func(t *testing.T) {
		zero := 0.0
		if err := e.svc.PatchAutoSettings(ctx, id, models.AutoSettingsPatch{DustThreshold: &zero}); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Expected ErrInvalidArgument for zero threshold, got %v", err)
		}
		if err := e.svc.UpdateAutoSettings(ctx, id, models.AutoSettings{Enabled: true}); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Expected ErrInvalidArgument for full replace without threshold, got %v", err)
		}
		if err := e.svc.PatchAutoSettings(ctx, id, models.AutoSettingsPatch{}); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Expected ErrInvalidArgument for empty patch, got %v", err)
		}
	})

	t.Run("Mode and PWM validation", func(t *testing.T) {
		if err := e.svc.SetMode(ctx, id, constants.CleaningModeAutomatic); err != nil {
			t.Errorf("SetMode failed: %v", err)
		}
		if err := e.svc.SetMode(ctx, id, "turbo"); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Expected ErrInvalidArgument, got %v", err)
		}
		if err := e.svc.SetPWM(ctx, id, constants.CleaningMethodWet, 300); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("Expected ErrInvalidArgument, got %v", err)
		}
		if err := e.svc.SetPWM(ctx, id, constants.CleaningMethodWet, 200); err != nil {
			t.Errorf("SetPWM failed: %v", err)
		}
	})

	t.Run("Unknown device", func(t *testing.T) {
		if err := e.svc.SetMode(ctx, "missing", constants.CleaningModeManual); !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Expected ErrDeviceNotFound, got %v", err)
		}
	})
}

func TestIngestReport(t *testing.T) {
	ctx := context.Background()

	t.Run("Power is voltage times current", func(t *testing.T) {
		e := newTestEnv()
		id := e.provision(t, models.DeviceInfo{Name: "Roof", PanelRating: 400})

		cases := [][2]float64{{18.2, 5.5}, {0, 7}, {33.3, 0.1}, {12.75, 3.33}}
		for _, c := range cases {
			report := models.Report{Parameters: &models.ParametersReport{Voltage: c[0], Current: c[1]}}
			if err := e.svc.IngestReport(ctx, id, report); err != nil {
				t.Fatalf("IngestReport failed: %v", err)
			}

			var params models.PanelParameters
			store.GetInto(ctx, e.store, paths.PanelParameters(id), &params)
			if params.Power != c[0]*c[1] {
				t.Errorf("Expected power %v, got %v", c[0]*c[1], params.Power)
			}
			if params.Timestamp != fixedNow.UnixMilli() {
				t.Errorf("Expected timestamp %d, got %d", fixedNow.UnixMilli(), params.Timestamp)
			}
		}
	})

	t.Run("Report marks device online and folds history", func(t *testing.T) {
		e := newTestEnv()
		id := e.provision(t, models.DeviceInfo{Name: "Roof", PanelRating: 200})

		report := models.Report{
			Environment: &models.EnvironmentReport{Humidity: 40, Temperature: 25, DustPresence: true},
			Parameters:  &models.ParametersReport{Voltage: 20, Current: 8},
		}
		if err := e.svc.IngestReport(ctx, id, report); err != nil {
			t.Fatalf("IngestReport failed: %v", err)
		}

		device, _ := e.svc.GetDevice(ctx, id)
		if device.Info.Status != constants.DeviceStatusOnline {
			t.Errorf("Expected status online, got '%s'", device.Info.Status)
		}
		if !device.Environment.DustPresence || device.Environment.Temperature != 25 {
			t.Errorf("Unexpected environment %+v", device.Environment)
		}
		if device.PanelStatus.Efficiency != 80 {
			t.Errorf("Expected efficiency 80, got %v", device.PanelStatus.Efficiency)
		}
		if device.PanelStatus.DailyLoss != 20 {
			t.Errorf("Expected daily loss 20, got %v", device.PanelStatus.DailyLoss)
		}
		day := fixedNow.Format(paths.HistoryDateLayout)
		if rec := device.History[day]; rec.PeakPower != 160 || rec.Samples != 1 {
			t.Errorf("Expected peak power 160 with 1 sample, got %+v", rec)
		}
		if e.telemetry.Reports != 1 {
			t.Errorf("Expected 1 telemetry write, got %d", e.telemetry.Reports)
		}
	})

	t.Run("Unknown device is rejected", func(t *testing.T) {
		e := newTestEnv()
		err := e.svc.IngestReport(ctx, "ghost", models.Report{Environment: &models.EnvironmentReport{}})
		if !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("Expected ErrDeviceNotFound, got %v", err)
		}
	})
}

func TestComputeLosses(t *testing.T) {
	today := fixedNow
	day := func(offset int) string {
		return today.AddDate(0, 0, -offset).Format(paths.HistoryDateLayout)
	}
	history := map[string]models.DailyRecord{
		day(0):  {EfficiencySum: 180, Samples: 2},
		day(3):  {EfficiencySum: 70, Samples: 1},
		day(20): {EfficiencySum: 50, Samples: 1},
		day(40): {EfficiencySum: 0, Samples: 1},
		day(1):  {Cleanings: 1},
	}

	losses := ComputeLosses(history, today)
	if losses.Daily != 10 {
		t.Errorf("Expected daily loss 10, got %v", losses.Daily)
	}
	if losses.Weekly != 20 {
		t.Errorf("Expected weekly loss 20, got %v", losses.Weekly)
	}
	if losses.Monthly != 30 {
		t.Errorf("Expected monthly loss 30, got %v", losses.Monthly)
	}
}
