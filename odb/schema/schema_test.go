package schema

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personJSON = `{
  "name": "Person",
  "superClass": "V",
  "alias": null,
  "abstract": false,
  "strictMode": false,
  "clusters": [11, 12],
  "defaultCluster": 11,
  "records": 42,
  "properties": [
    {"name": "name", "type": "STRING", "mandatory": true, "readonly": false, "notNull": true, "min": "1", "max": 64, "collate": "ci"},
    {"name": "friends", "type": "LINKLIST", "linkedType": "Person", "mandatory": false, "readonly": false, "notNull": false}
  ]
}`

func TestDecode(t *testing.T) {
	class, err := Decode([]byte(personJSON))
	require.NoError(t, err)
	assert.Equal(t, "Person", class.Name)
	assert.Equal(t, "V", class.SuperClass)
	assert.Equal(t, []int{11, 12}, class.Clusters)
	assert.Equal(t, int64(42), class.Records)
	require.Len(t, class.Properties, 2)

	name, ok := class.Property("name")
	require.True(t, ok)
	assert.Equal(t, "STRING", name.Type)
	assert.True(t, name.Mandatory)
	require.NotNil(t, name.Min)
	require.NotNil(t, name.Max)
	assert.Equal(t, Bound(1), *name.Min)
	assert.Equal(t, Bound(64), *name.Max)

	friends, ok := class.Property("friends")
	require.True(t, ok)
	assert.Equal(t, "Person", friends.LinkedType)
	assert.Nil(t, friends.Min)

	_, err = Decode([]byte(`{"properties": []}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`{"name": "X", "properties": [{"name": "a", "min": "abc"}]}`))
	assert.Error(t, err)
}

func TestHasProperty(t *testing.T) {
	class := &Class{Name: "A", Properties: []Property{{Name: "x"}, {Name: "y"}}}
	assert.True(t, class.HasProperty("x"))
	assert.False(t, class.HasProperty("X"))
	assert.False(t, class.HasProperty("z"))

	var missing *Class
	assert.False(t, missing.HasProperty("x"))
}

func TestCache(t *testing.T) {
	Convey("Cache", t, func() {
		cache := NewCache()

		Convey("Add 只在不存在时写入", func() {
			first := &Class{Name: "A", Records: 1}
			So(cache.Add(first), ShouldEqual, first)
			So(cache.Add(&Class{Name: "A", Records: 2}), ShouldEqual, first)

			got, ok := cache.Get("A")
			So(ok, ShouldBeTrue)
			So(got.Records, ShouldEqual, int64(1))
			So(cache.Len(), ShouldEqual, 1)
		})

		Convey("Replace 覆盖已有条目", func() {
			cache.Add(&Class{Name: "A", Records: 1})
			cache.Replace(&Class{Name: "A", Records: 2})
			got, _ := cache.Get("A")
			So(got.Records, ShouldEqual, int64(2))
		})

		Convey("MustGet 未缓存时返回错误", func() {
			_, err := cache.MustGet("missing")
			So(errors.Is(err, ErrClassNotCached), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "missing")
		})

		Convey("Lookup 保持顺序并跳过未缓存的类", func() {
			cache.Add(&Class{Name: "A"})
			cache.Add(&Class{Name: "B"})
			classes := cache.Lookup("B", "C", "A")
			So(len(classes), ShouldEqual, 2)
			So(classes[0].Name, ShouldEqual, "B")
			So(classes[1].Name, ShouldEqual, "A")
		})

		Convey("并发访问", func() {
			var wg sync.WaitGroup
			for i := 0; i < 32; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					cache.Add(&Class{Name: "A"})
					cache.Get("A")
				}()
			}
			wg.Wait()
			So(cache.Len(), ShouldEqual, 1)
		})
	})
}
