package shared

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSagaRunsStepsInOrder(t *testing.T) {
	var order []string
	s := NewSaga("test", nil).
		Then("first", func(context.Context) error {
			order = append(order, "first")
			return nil
		}).
		Then("second", func(context.Context) error {
			order = append(order, "second")
			return nil
		})
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, []string{"first", "second"}, order)
}

func TestSagaAbortStopsSequence(t *testing.T) {
	ran := false
	s := NewSaga("test", nil).
		Then("boom", func(context.Context) error { return errors.New("boom") }).
		Then("after", func(context.Context) error {
			ran = true
			return nil
		})
	err := s.Run(context.Background())
	require.Error(t, err)
	require.False(t, ran)
}

func TestSagaTolerateContinues(t *testing.T) {
	ran := false
	s := NewSaga("test", nil).
		ThenTolerate("projection", func(context.Context) error { return errors.New("projection down") }).
		Then("after", func(context.Context) error {
			ran = true
			return nil
		})
	require.NoError(t, s.Run(context.Background()))
	require.True(t, ran)
}
