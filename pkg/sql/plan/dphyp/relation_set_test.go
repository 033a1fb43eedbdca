// Copyright 2024 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dphyp

import (
	"testing"

	"github.com/RoaringBitmap/roaring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRelationSetTree(t *testing.T) {
	Convey("relation sets are interned", t, func() {
		tree := newRelationSetTree()
		s := tree.getRelationSet([]int{2, 0, 2})

		So(s, ShouldPointTo, tree.getRelationSet([]int{0, 2}))
		So(s.String(), ShouldEqual, "{0, 2}")
		So(s.Len(), ShouldEqual, 2)
		So(s.Min(), ShouldEqual, 0)
		So(s.Relations(), ShouldResemble, []int{0, 2})
		So(tree.getRelationSet(nil), ShouldBeNil)

		Convey("single relations and bitmaps resolve to the same set", func() {
			So(tree.getRelationSetByIndex(1), ShouldPointTo, tree.getRelationSet([]int{1}))
			So(tree.getRelationSetByBitmap(roaring.BitmapOf(2, 0)), ShouldPointTo, s)
		})

		Convey("union", func() {
			one := tree.getRelationSetByIndex(1)
			u := tree.union(s, one)
			So(u.String(), ShouldEqual, "{0, 1, 2}")
			So(u, ShouldPointTo, tree.getRelationSet([]int{1, 2, 0}))
			So(tree.union(s, s), ShouldPointTo, s)
		})
	})

	Convey("set predicates", t, func() {
		tree := newRelationSetTree()
		a := tree.getRelationSet([]int{0, 1})
		b := tree.getRelationSet([]int{0, 1, 3})
		c := tree.getRelationSet([]int{2, 3})

		So(a.IsSubsetOf(b), ShouldBeTrue)
		So(b.IsSubsetOf(a), ShouldBeFalse)
		So(a.IsSubsetOf(a), ShouldBeTrue)
		So(c.IsSubsetOf(b), ShouldBeFalse)

		So(a.Intersects(b), ShouldBeTrue)
		So(a.Intersects(c), ShouldBeFalse)
		So(c.IntersectsBitmap(roaring.BitmapOf(3)), ShouldBeTrue)
		So(b.Contains(3), ShouldBeTrue)
		So(b.Contains(2), ShouldBeFalse)
	})
}
