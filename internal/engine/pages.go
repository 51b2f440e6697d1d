/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
package engine

import (
	"fmt"
	"slices"

	"calendarcanvas/internal/scene"
	"calendarcanvas/internal/undo"
)

// AddPage appends an empty page and makes it active. A non-positive size
// copies the active page's size.
func (e *Engine) AddPage(width, height float64) (*scene.Page, error) {
	cur, err := e.ActivePage()
	if err != nil {
		return nil, err
	}
	if !(width > 0) || !(height > 0) {
		width, height = scene.PageSize(cur)
	}
	pages := e.scene.Project.Pages
	page := scene.NewPage(e.ids("pg"), fmt.Sprintf("页面 %d", len(pages)+1), width, height)
	prevIndex := e.scene.ActivePageIndex
	index := len(pages)

	e.run(&undo.Func{
		Label: "addPage",
		DoFn: func() {
			e.scene.Project.Pages = slices.Insert(e.scene.Project.Pages, index, page)
			e.showPage(index)
		},
		UndoFn: func() {
			e.scene.Project.Pages = slices.DeleteFunc(e.scene.Project.Pages, func(p *scene.Page) bool { return p == page })
			e.showPage(prevIndex)
		},
	}, false)
	return page.Clone(), nil
}

// RemovePage deletes the page at index. The last page cannot be removed.
func (e *Engine) RemovePage(index int) bool {
	pages := e.scene.Project.Pages
	if index < 0 || index >= len(pages) || len(pages) <= 1 {
		return false
	}
	page := pages[index]
	prevIndex := e.scene.ActivePageIndex
	nextIndex := prevIndex
	if nextIndex >= index && nextIndex > 0 {
		nextIndex--
	}

	e.run(&undo.Func{
		Label: "removePage",
		DoFn: func() {
			e.scene.Project.Pages = slices.DeleteFunc(e.scene.Project.Pages, func(p *scene.Page) bool { return p == page })
			e.showPage(nextIndex)
		},
		UndoFn: func() {
			i := min(index, len(e.scene.Project.Pages))
			e.scene.Project.Pages = slices.Insert(e.scene.Project.Pages, i, page)
			e.showPage(prevIndex)
		},
	}, false)
	return true
}

func (e *Engine) showPage(i int) {
	e.scene.ActivePageIndex = min(max(i, 0), len(e.scene.Project.Pages)-1)
	e.pruneSelection()
	e.renderer.InvalidateAll()
}
