package service

import (
	"container/list"

	"github.com/immxrtalbeast/tutorchat/internal/domain"
)

type waiter struct {
	conn    domain.ConnectionID
	session domain.UserSession
}

// waitQueue is a FIFO of waiters with O(1) removal by user id.
type waitQueue struct {
	order  *list.List
	index  map[int64]*list.Element
	byDept map[int64]int
}

func newWaitQueue() *waitQueue {
	return &waitQueue{
		order:  list.New(),
		index:  make(map[int64]*list.Element),
		byDept: make(map[int64]int),
	}
}

func (q *waitQueue) push(w waiter) bool {
	if _, ok := q.index[w.session.UserID]; ok {
		return false
	}
	q.index[w.session.UserID] = q.order.PushBack(w)
	q.byDept[w.session.DepartmentID]++
	return true
}

func (q *waitQueue) pop() (waiter, bool) {
	front := q.order.Front()
	if front == nil {
		return waiter{}, false
	}
	w := front.Value.(waiter)
	q.drop(front, w)
	return w, true
}

func (q *waitQueue) remove(userID int64) bool {
	el, ok := q.index[userID]
	if !ok {
		return false
	}
	q.drop(el, el.Value.(waiter))
	return true
}

func (q *waitQueue) drop(el *list.Element, w waiter) {
	q.order.Remove(el)
	delete(q.index, w.session.UserID)
	if q.byDept[w.session.DepartmentID]--; q.byDept[w.session.DepartmentID] <= 0 {
		delete(q.byDept, w.session.DepartmentID)
	}
}

func (q *waitQueue) contains(userID int64) bool {
	_, ok := q.index[userID]
	return ok
}

func (q *waitQueue) len() int {
	return q.order.Len()
}

func (q *waitQueue) departments() map[int64]int {
	out := make(map[int64]int, len(q.byDept))
	for dept, n := range q.byDept {
		out[dept] = n
	}
	return out
}

// matchQueues pairs tutors with students in arrival order, ignoring department.
type matchQueues struct {
	tutors   *waitQueue
	students *waitQueue
}

func newMatchQueues() *matchQueues {
	return &matchQueues{tutors: newWaitQueue(), students: newWaitQueue()}
}

func (m *matchQueues) queue(side domain.Side) *waitQueue {
	if side == domain.SideTutor {
		return m.tutors
	}
	return m.students
}

func (m *matchQueues) opposite(side domain.Side) *waitQueue {
	if side == domain.SideTutor {
		return m.students
	}
	return m.tutors
}

// submit takes the oldest waiter from the opposite queue, or enqueues w when
// nobody is waiting there.
func (m *matchQueues) submit(w waiter) (waiter, bool) {
	side := domain.ClassifyRole(w.session)
	if peer, ok := m.opposite(side).pop(); ok {
		return peer, true
	}
	m.queue(side).push(w)
	return waiter{}, false
}

func (m *matchQueues) withdraw(session domain.UserSession) bool {
	return m.queue(domain.ClassifyRole(session)).remove(session.UserID)
}

func (m *matchQueues) counts() domain.QueueCounts {
	return domain.QueueCounts{
		WaitingStudents:      m.students.len(),
		WaitingTutors:        m.tutors.len(),
		StudentsByDepartment: m.students.departments(),
		TutorsByDepartment:   m.tutors.departments(),
	}
}
