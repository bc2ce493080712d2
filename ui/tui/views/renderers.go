package views

import (
	"graphbridge/ui/tui/state"
)

func RenderMenu(s state.AppState, width, height, cursor int, animCursor float64, mouseX, mouseY int) string {
	return MenuView{}.Render(s, ViewProps{
		Width:      width,
		Height:     height,
		MenuCursor: cursor,
		AnimCursor: animCursor,
		MouseX:     mouseX,
		MouseY:     mouseY,
	})
}

func RenderChat(s state.AppState, width, height int, spinnerView, inputView, chartView string) string {
	return ChatView{}.Render(s, ViewProps{
		Width:       width,
		Height:      height,
		SpinnerView: spinnerView,
		InputView:   inputView,
		ChartView:   chartView,
	})
}

func RenderSchema(s state.AppState, width, height int) string {
	return SchemaView{}.Render(s, ViewProps{Width: width, Height: height})
}

func RenderStats(s state.AppState, width, height int, spinnerView string) string {
	return StatsView{}.Render(s, ViewProps{Width: width, Height: height, SpinnerView: spinnerView})
}

func RenderRawConsole(s state.AppState, width, height, scrollY int) string {
	return ConsoleView{}.Render(s, ViewProps{
		Width:   width,
		Height:  height,
		ScrollY: scrollY,
	})
}
