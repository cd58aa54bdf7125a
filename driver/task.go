package driver

import (
	"github.com/ezrec/tickcpu/cpu"
)

// Scheduler is a cooperative, single threaded task scheduler.
//
// Each task runs on its own goroutine, but only while the scheduler has
// resumed it: a task runs until it yields, and the scheduler waits for the
// yield before resuming the next task. Exactly one goroutine, the
// scheduler's or one task's, runs at any moment.
type Scheduler struct {
	tasks []*Task
}

// Task is a suspended continuation owned by a Scheduler.
type Task struct {
	resume chan bool     // Resume the task; false asks it to stop.
	park   chan struct{} // Task yielded; closed when the task returns.
	done   bool
}

// Spawn adds a task. The task body calls yield to suspend until its next
// turn; yield returns false when the scheduler is stopping the task.
// The body does not start running until the next Tick.
func (sched *Scheduler) Spawn(body func(yield func() bool)) (task *Task) {
	task = &Task{
		resume: make(chan bool),
		park:   make(chan struct{}),
	}

	go func() {
		defer close(task.park)
		if !<-task.resume {
			return
		}
		body(func() bool {
			task.park <- struct{}{}
			return <-task.resume
		})
	}()

	sched.tasks = append(sched.tasks, task)

	return
}

// Done returns true if the task body has returned.
func (task *Task) Done() bool {
	return task.done
}

// Tick resumes every live task once, in spawn order, and returns the
// number of tasks still live.
func (sched *Scheduler) Tick() (live int) {
	for _, task := range sched.tasks {
		if task.done {
			continue
		}
		task.resume <- true
		_, ok := <-task.park
		if !ok {
			task.done = true
			continue
		}
		live++
	}

	return
}

// Stop asks every live task to return, and waits for them.
func (sched *Scheduler) Stop() {
	for _, task := range sched.tasks {
		if task.done {
			continue
		}
		task.resume <- false
		for range task.park {
			task.resume <- false
		}
		task.done = true
	}

	sched.tasks = nil
}

// TaskDriver drives a stepper as a task of a Scheduler, with each peer
// as a task of its own.
type TaskDriver struct {
	stepper cpu.Stepper
	peers   []Clocked
}

var _ Driver = (*TaskDriver)(nil)

// NewTask creates a cooperative task driver.
func NewTask(stepper cpu.Stepper, peers ...Clocked) *TaskDriver {
	return &TaskDriver{stepper: stepper, peers: peers}
}

// Name of the driver.
func (drv *TaskDriver) Name() string {
	return TASK
}

// Run advances the stepper until count more instructions retire.
func (drv *TaskDriver) Run(count int) (err error) {
	if count < 0 {
		err = ErrCount
		return
	}
	if count == 0 {
		return
	}

	sched := &Scheduler{}
	defer sched.Stop()

	// The processor yields once per cycle, and returns on the last.
	processor := sched.Spawn(func(yield func() bool) {
		for retired := 0; ; {
			if drv.stepper.Advance() == cpu.STATUS_COMPLETE {
				retired++
				if retired == count {
					return
				}
			}
			if !yield() {
				return
			}
		}
	})

	for _, peer := range drv.peers {
		sched.Spawn(func(yield func() bool) {
			for {
				peer.Clock()
				if !yield() {
					return
				}
			}
		})
	}

	for !processor.Done() {
		sched.Tick()
	}

	return
}
