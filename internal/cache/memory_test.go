package cache

import (
	"testing"
	"time"

	"cadenza/pkg/models"
)

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	defer c.Close()

	t.Run("SetAndGet", func(t *testing.T) {
		c.Set("a", 1)
		value, ok := c.Get("a")
		if !ok {
			t.Fatal("Expected cached value")
		}
		if value.(int) != 1 {
			t.Errorf("Expected 1, got %v", value)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		c.Set("b", 2)
		c.Delete("b")
		if _, ok := c.Get("b"); ok {
			t.Error("Expected value to be deleted")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		c.Set("c", 3)
		c.Clear()
		if c.Size() != 0 {
			t.Errorf("Expected empty cache, got %d items", c.Size())
		}
	})
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(10 * time.Millisecond)
	defer c.Close()

	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("Expected entry to expire")
	}
}

func TestMemoryCacheCloseTwice(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	c.Close()
	c.Close()
}

func TestCategoryCache(t *testing.T) {
	cc := NewCategoryCache()
	defer cc.Close()

	cc.SetCategory(&models.Category{ID: "c1", Name: "Pop"})

	got, ok := cc.GetCategory(" Pop ")
	if !ok {
		t.Fatal("Expected cached category")
	}
	if got.ID != "c1" {
		t.Errorf("Expected c1, got %s", got.ID)
	}

	if _, ok := cc.GetCategory("Rock"); ok {
		t.Error("Expected miss for unknown category")
	}
}
