package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/lifecycled/pkg/service"
)

func TestDeriveName(t *testing.T) {
	tests := []struct {
		module   string
		typeName string
		want     string
	}{
		{"shop.orders", "OrderService", "shop-orders-order-service"},
		{"company.shop.orders", "Orders", "shop-orders-orders"},
		{"company/shop/order_events", "Consumer", "shop-order-events-consumer"},
		{"orders", "Worker", "orders-worker"},
		{"", "HTTPService", "http-service"},
		{"tests.service", "HTTPService", "http-service"},
		{"service.app", "App", "service"},
		{"", "Service", "service"},
		{"examples.app", "Service", "service"},
		{"", "My_Service", "my-service"},
		{"", "S3Uploader", "s3-uploader"},
		{"", "V2API", "v2-api"},
	}

	for _, tt := range tests {
		t.Run(tt.module+"/"+tt.typeName, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveName(tt.module, tt.typeName))
		})
	}
}

func TestDeriveNameIsDeterministic(t *testing.T) {
	assert.Equal(t, DeriveName("shop.orders", "Orders"), DeriveName("shop.orders", "Orders"))
}

func TestRegistrySetGetUnset(t *testing.T) {
	reg := New()
	inst := &service.Instance{}

	require.NoError(t, reg.Set("orders", inst))
	got, ok := reg.Get("orders")
	require.True(t, ok)
	assert.Same(t, inst, got)
	assert.Equal(t, "orders", inst.Name())

	reg.Unset("orders")
	_, ok = reg.Get("orders")
	assert.False(t, ok)
	reg.Unset("orders")

	assert.Error(t, reg.Set("", inst))
	assert.Error(t, reg.Set("x", nil))
}

func TestRegistryClear(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Set("a", &service.Instance{}))
	require.NoError(t, reg.Set("b", &service.Instance{}))
	assert.Equal(t, []string{"a", "b"}, reg.Names())

	reg.Clear()
	assert.Zero(t, reg.Len())
	assert.Empty(t, reg.Instances())
}

func TestAssign(t *testing.T) {
	t.Run("FirstInstanceKeepsBareName", func(t *testing.T) {
		reg := New()
		inst := &service.Instance{}

		assert.Equal(t, "orders", reg.Assign("orders", inst))
		assert.Equal(t, "orders", inst.Name())
	})

	t.Run("SecondInstanceRenamesFirst", func(t *testing.T) {
		reg := New()
		first, second := &service.Instance{}, &service.Instance{}

		reg.Assign("orders", first)
		name := reg.Assign("orders", second)

		assert.Equal(t, "orders-0002", name)
		assert.Equal(t, "orders-0001", first.Name())
		assert.Equal(t, []string{"orders-0001", "orders-0002"}, reg.Names())

		got, ok := reg.Get("orders-0001")
		require.True(t, ok)
		assert.Same(t, first, got)
		_, ok = reg.Get("orders")
		assert.False(t, ok)
	})

	t.Run("ThirdInstanceScansUpward", func(t *testing.T) {
		reg := New()
		a, b, c := &service.Instance{}, &service.Instance{}, &service.Instance{}

		reg.Assign("orders", a)
		reg.Assign("orders", b)
		name := reg.Assign("orders", c)

		assert.Equal(t, "orders-0003", name)
		assert.Equal(t, "orders-0001", a.Name())
		assert.Equal(t, "orders-0002", b.Name())
	})

	t.Run("FillsGaps", func(t *testing.T) {
		reg := New()
		a, b, c := &service.Instance{}, &service.Instance{}, &service.Instance{}

		reg.Assign("orders", a)
		reg.Assign("orders", b)
		reg.Unset("orders-0002")
		assert.Equal(t, "orders-0002", reg.Assign("orders", c))
	})

	t.Run("ConcurrentAssignmentsAreUnique", func(t *testing.T) {
		reg := New()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				reg.Assign("worker", &service.Instance{})
			}()
		}
		wg.Wait()

		assert.Equal(t, 50, reg.Len())
		_, ok := reg.Get("worker")
		assert.False(t, ok)
		_, ok = reg.Get("worker-0050")
		assert.True(t, ok)
	})
}
