package driver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/padmap/driver"
	th "github.com/Alia5/padmap/internal/testing"
)

func TestDriverRegistry(t *testing.T) {
	tests := []struct {
		name         string
		registerName string
		lookupName   string
		shouldFind   bool
	}{
		{
			name:         "register and retrieve exact match",
			registerName: "testdriver",
			lookupName:   "testdriver",
			shouldFind:   true,
		},
		{
			name:         "case insensitive lookup",
			registerName: "TestDriver",
			lookupName:   "testdriver",
			shouldFind:   true,
		},
		{
			name:         "case insensitive lookup uppercase",
			registerName: "mydriver",
			lookupName:   "MYDRIVER",
			shouldFind:   true,
		},
		{
			name:         "lookup non-existent driver",
			registerName: "driver1",
			lookupName:   "driver2",
			shouldFind:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enumerated := false
			reg := th.CreateMockRegistration(t, tt.registerName, func() ([]driver.Binding, error) {
				enumerated = true
				return nil, nil
			})

			driver.RegisterDriver(tt.name+"_"+tt.registerName, reg)
			retrieved := driver.GetRegistration(tt.name + "_" + tt.lookupName)

			if !tt.shouldFind {
				assert.Nil(t, retrieved, "expected not to find driver")
				return
			}
			require.NotNil(t, retrieved, "expected to find registered driver")
			_, err := retrieved.Enumerate()
			assert.NoError(t, err)
			assert.True(t, enumerated, "expected enumerate to be called")
		})
	}
}

func TestLookup(t *testing.T) {
	reg := th.CreateMockRegistration(t, "lookupdrv", func() ([]driver.Binding, error) { return nil, nil })
	driver.RegisterDriver("LookupDrv", reg)

	got, err := driver.Lookup("LOOKUPDRV")
	require.NoError(t, err)
	assert.Contains(t, got, "lookupdrv")

	_, err = driver.Lookup("lookupdrv", "missing")
	assert.ErrorIs(t, err, driver.ErrUnknownDriver)

	all, err := driver.Lookup()
	require.NoError(t, err)
	assert.Contains(t, all, "lookupdrv")
	assert.Contains(t, driver.ListDrivers(), "lookupdrv")
}

type optInRegistration struct{}

func (optInRegistration) Enumerate() ([]driver.Binding, error) { return nil, nil }
func (optInRegistration) OptIn() bool                          { return true }

func TestLookupSkipsOptInDrivers(t *testing.T) {
	driver.RegisterDriver("optindrv", optInRegistration{})

	all, err := driver.Lookup()
	require.NoError(t, err)
	assert.NotContains(t, all, "optindrv")

	named, err := driver.Lookup("optindrv")
	require.NoError(t, err)
	assert.Contains(t, named, "optindrv")
}
